// internal/infra/database/postgres_history_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq" // For pq.Array
)

type PostgresHistoryRepository struct {
	db *sql.DB
}

func NewPostgresHistoryRepository(db *sql.DB) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

// Migrate creates the notified_uploads table if it does not exist.
func (r *PostgresHistoryRepository) Migrate(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS notified_uploads (
               file_name   TEXT PRIMARY KEY,
               notified_at TIMESTAMPTZ NOT NULL
             )`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("error migrating notified_uploads: %w", err)
	}
	return nil
}

func (r *PostgresHistoryRepository) MarkNotified(ctx context.Context, fileName string, notifiedAt time.Time) error {
	query := `INSERT INTO notified_uploads (file_name, notified_at)
               VALUES ($1, $2)
               ON CONFLICT (file_name) DO UPDATE SET notified_at = EXCLUDED.notified_at`
	if _, err := r.db.ExecContext(ctx, query, fileName, notifiedAt); err != nil {
		return fmt.Errorf("error marking %q as notified: %w", fileName, err)
	}
	return nil
}

func (r *PostgresHistoryRepository) IsNotified(ctx context.Context, fileName string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM notified_uploads WHERE file_name = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, fileName).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking notified state of %q: %w", fileName, err)
	}
	return exists, nil
}

func (r *PostgresHistoryRepository) Retain(ctx context.Context, fileNames []string) (int, error) {
	if fileNames == nil {
		// A nil array binds as NULL, which would match nothing.
		fileNames = []string{}
	}
	query := `DELETE FROM notified_uploads WHERE NOT (file_name = ANY($1))`
	res, err := r.db.ExecContext(ctx, query, pq.Array(fileNames))
	if err != nil {
		return 0, fmt.Errorf("error pruning notified_uploads: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading pruned row count: %w", err)
	}
	return int(removed), nil
}

func (r *PostgresHistoryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notified_uploads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting notified_uploads: %w", err)
	}
	return n, nil
}

func (r *PostgresHistoryRepository) Close() error {
	return r.db.Close()
}
