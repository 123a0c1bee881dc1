// Package history persists a record of finished jobs so past runs and their
// output references can be listed later.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/depthview/depthview-client/internal/remote"
	"github.com/depthview/depthview-client/internal/session"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Record is one finished run of the processing lifecycle.
type Record struct {
	ID        string
	Filename  string
	SizeMB    float64
	Params    session.Params
	Status    string
	Error     string
	Downloads remote.Downloads
	Duration  time.Duration
	CreatedAt time.Time
}

// Store reads and writes job records.
type Store interface {
	Add(ctx context.Context, record Record) (Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
}

// SQLiteStore is the Store implementation over the client database.
type SQLiteStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Add inserts the record, assigning an ID and timestamp when absent.
func (s *SQLiteStore) Add(ctx context.Context, record Record) (Record, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, filename, size_mb, encoder, input_size, max_res, target_fps,
			status, error, src_ref, depth_ref, rgbd_ref, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.Filename, record.SizeMB,
		record.Params.Encoder, record.Params.InputSize, record.Params.MaxRes, record.Params.TargetFPS,
		record.Status, nullString(record.Error),
		nullString(record.Downloads.Src), nullString(record.Downloads.Depth), nullString(record.Downloads.RGBD),
		record.Duration.Milliseconds(), record.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Record{}, err
	}
	return record, nil
}

// List returns the most recent records, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, size_mb, encoder, input_size, max_res, target_fps,
			status, error, src_ref, depth_ref, rgbd_ref, duration_ms, created_at
		FROM jobs ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var errMsg, srcRef, depthRef, rgbdRef sql.NullString
		var durationMS int64
		var createdAt string

		if err := rows.Scan(&r.ID, &r.Filename, &r.SizeMB,
			&r.Params.Encoder, &r.Params.InputSize, &r.Params.MaxRes, &r.Params.TargetFPS,
			&r.Status, &errMsg, &srcRef, &depthRef, &rgbdRef, &durationMS, &createdAt); err != nil {
			return nil, err
		}

		r.Error = errMsg.String
		r.Downloads = remote.Downloads{Src: srcRef.String, Depth: depthRef.String, RGBD: rgbdRef.String}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
