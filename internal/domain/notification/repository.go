// internal/domain/notification/repository.go
package notification

import (
	"context"
	"time"
)

// Repository remembers which uploaded files have already been announced.
// Entries are keyed by file name, so the same file uploaded again is only
// announced after its entry has been pruned.
type Repository interface {
	MarkNotified(ctx context.Context, fileName string, notifiedAt time.Time) error
	IsNotified(ctx context.Context, fileName string) (bool, error)
	// Retain drops every entry whose name is not in fileNames and returns how
	// many were removed.
	Retain(ctx context.Context, fileNames []string) (int, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
