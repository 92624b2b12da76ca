package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type SQLiteHistoryRepository struct {
	db *sql.DB
}

func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// Migrate creates the notified_uploads table if it does not exist.
func (r *SQLiteHistoryRepository) Migrate(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS notified_uploads (
               file_name   TEXT PRIMARY KEY,
               notified_at TIMESTAMP NOT NULL
             )`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("error migrating notified_uploads: %w", err)
	}
	return nil
}

func (r *SQLiteHistoryRepository) MarkNotified(ctx context.Context, fileName string, notifiedAt time.Time) error {
	query := `INSERT INTO notified_uploads (file_name, notified_at)
               VALUES (?, ?)
               ON CONFLICT (file_name) DO UPDATE SET notified_at = excluded.notified_at`
	if _, err := r.db.ExecContext(ctx, query, fileName, notifiedAt.UTC()); err != nil {
		return fmt.Errorf("error marking %q as notified: %w", fileName, err)
	}
	return nil
}

func (r *SQLiteHistoryRepository) IsNotified(ctx context.Context, fileName string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notified_uploads WHERE file_name = ?`, fileName).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("error checking notified state of %q: %w", fileName, err)
	}
	return n > 0, nil
}

// Retain deletes every entry whose file name is not in fileNames. The names
// travel as a single JSON array so the keep list is not bound by SQLite's
// host parameter limit.
func (r *SQLiteHistoryRepository) Retain(ctx context.Context, fileNames []string) (int, error) {
	if fileNames == nil {
		fileNames = []string{}
	}
	keep, err := json.Marshal(fileNames)
	if err != nil {
		return 0, fmt.Errorf("error encoding keep list: %w", err)
	}

	query := `DELETE FROM notified_uploads
               WHERE file_name NOT IN (SELECT value FROM json_each(?))`
	res, err := r.db.ExecContext(ctx, query, string(keep))
	if err != nil {
		return 0, fmt.Errorf("error pruning notified_uploads: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading pruned row count: %w", err)
	}
	return int(removed), nil
}

func (r *SQLiteHistoryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notified_uploads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting notified_uploads: %w", err)
	}
	return n, nil
}

func (r *SQLiteHistoryRepository) Close() error {
	return r.db.Close()
}
