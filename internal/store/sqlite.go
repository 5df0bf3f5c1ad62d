package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/twardell/clipsync/internal/errors"
	"github.com/twardell/clipsync/internal/models"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open opens the clipsync database under dataDir, creating the directory,
// file and schema as needed. The database runs in WAL mode with a single
// writer connection.
func Open(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "clipsync.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't support multiple writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL CHECK(length(filename) > 0),
		size_bytes INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		remote_path TEXT,
		local_status TEXT NOT NULL DEFAULT 'pending'
			CHECK(local_status IN ('pending', 'uploading', 'success', 'failed')),
		remote_status TEXT NOT NULL DEFAULT 'pending'
			CHECK(remote_status IN ('pending', 'uploading', 'success', 'failed')),
		retry_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		last_modified INTEGER NOT NULL,
		payload BLOB
	);

	CREATE TABLE IF NOT EXISTS pending_operations (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL CHECK(type IN ('upload', 'rename', 'delete')),
		target_id TEXT NOT NULL,
		new_filename TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pending_operations_target
		ON pending_operations(target_id);

	CREATE TABLE IF NOT EXISTS upload_progress (
		record_id TEXT PRIMARY KEY,
		loaded INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		percentage REAL NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =====================================================
// Record operations
// =====================================================

// PutRecord upserts a record, payload included.
func (s *SQLiteStore) PutRecord(rec *models.Record) error {
	query := `
	INSERT INTO records (id, filename, size_bytes, duration_ms, remote_path,
		local_status, remote_status, retry_count, created_at, last_modified, payload)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		filename = excluded.filename,
		size_bytes = excluded.size_bytes,
		duration_ms = excluded.duration_ms,
		remote_path = excluded.remote_path,
		local_status = excluded.local_status,
		remote_status = excluded.remote_status,
		retry_count = excluded.retry_count,
		created_at = excluded.created_at,
		last_modified = excluded.last_modified,
		payload = excluded.payload
	`
	_, err := s.db.Exec(query, rec.ID, rec.Filename, rec.SizeBytes, rec.DurationMS,
		nullString(rec.RemotePath), string(rec.LocalStatus), string(rec.RemoteStatus),
		rec.RetryCount, rec.CreatedAt.UnixMilli(), rec.LastModified.UnixMilli(), rec.Payload)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "failed to put record", err)
	}
	return nil
}

// GetRecord retrieves a record by id.
func (s *SQLiteStore) GetRecord(id string) (*models.Record, error) {
	query := `
	SELECT id, filename, size_bytes, duration_ms, remote_path, local_status,
		remote_status, retry_count, created_at, last_modified, payload
	FROM records WHERE id = ?
	`
	rec, err := scanRecord(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "record %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, "failed to get record", err)
	}
	return rec, nil
}

// DeleteRecord deletes a record and its payload. Deleting a missing record
// is a no-op.
func (s *SQLiteStore) DeleteRecord(id string) error {
	if _, err := s.db.Exec("DELETE FROM records WHERE id = ?", id); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "failed to delete record", err)
	}
	return nil
}

// ListRecords returns all records ordered by creation time.
func (s *SQLiteStore) ListRecords() ([]*models.Record, error) {
	query := `
	SELECT id, filename, size_bytes, duration_ms, remote_path, local_status,
		remote_status, retry_count, created_at, last_modified, payload
	FROM records ORDER BY created_at, id
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, "failed to list records", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStore, "failed to scan record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, "failed to list records", err)
	}
	return records, nil
}

// ReplaceRecord deletes the record stored under oldID and inserts rec within
// one transaction.
func (s *SQLiteStore) ReplaceRecord(oldID string, rec *models.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM records WHERE id = ?", oldID); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "failed to delete old record", err)
	}

	query := `
	INSERT INTO records (id, filename, size_bytes, duration_ms, remote_path,
		local_status, remote_status, retry_count, created_at, last_modified, payload)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.Exec(query, rec.ID, rec.Filename, rec.SizeBytes, rec.DurationMS,
		nullString(rec.RemotePath), string(rec.LocalStatus), string(rec.RemoteStatus),
		rec.RetryCount, rec.CreatedAt.UnixMilli(), rec.LastModified.UnixMilli(), rec.Payload)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "failed to insert replacement record", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "failed to commit replacement", err)
	}
	return nil
}

// =====================================================
// Pending-operation queue
// =====================================================

// PutOperation inserts a queued operation.
func (s *SQLiteStore) PutOperation(op *models.PendingOperation) error {
	query := `
	INSERT OR REPLACE INTO pending_operations (id, type, target_id, new_filename, created_at)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query, op.ID, string(op.Type), op.TargetID,
		nullString(op.NewFilename), op.CreatedAt.UnixMilli())
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "failed to put operation", err)
	}
	return nil
}

// DeleteOperation removes a queued operation. Removing a missing operation
// is a no-op.
func (s *SQLiteStore) DeleteOperation(id string) error {
	if _, err := s.db.Exec("DELETE FROM pending_operations WHERE id = ?", id); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "failed to delete operation", err)
	}
	return nil
}

// ListOperations returns all queued operations in creation order.
func (s *SQLiteStore) ListOperations() ([]*models.PendingOperation, error) {
	query := `
	SELECT id, type, target_id, new_filename, created_at
	FROM pending_operations ORDER BY created_at, rowid
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, "failed to list operations", err)
	}
	defer rows.Close()

	var ops []*models.PendingOperation
	for rows.Next() {
		var op models.PendingOperation
		var newFilename sql.NullString
		var createdAt int64
		if err := rows.Scan(&op.ID, &op.Type, &op.TargetID, &newFilename, &createdAt); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStore, "failed to scan operation", err)
		}
		op.NewFilename = newFilename.String
		op.CreatedAt = time.UnixMilli(createdAt).UTC()
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, "failed to list operations", err)
	}
	return ops, nil
}

// =====================================================
// Upload progress
// =====================================================

// PutProgress upserts the progress entry for a record.
func (s *SQLiteStore) PutProgress(p *models.UploadProgress) error {
	query := `
	INSERT OR REPLACE INTO upload_progress (record_id, loaded, total, percentage, updated_at)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query, p.RecordID, p.Loaded, p.Total, p.Percentage, p.UpdatedAt.UnixMilli())
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "failed to put progress", err)
	}
	return nil
}

// GetProgress retrieves the progress entry for a record.
func (s *SQLiteStore) GetProgress(recordID string) (*models.UploadProgress, error) {
	query := `
	SELECT record_id, loaded, total, percentage, updated_at
	FROM upload_progress WHERE record_id = ?
	`
	var p models.UploadProgress
	var updatedAt int64
	err := s.db.QueryRow(query, recordID).Scan(&p.RecordID, &p.Loaded, &p.Total, &p.Percentage, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "no progress for record %s", recordID)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, "failed to get progress", err)
	}
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &p, nil
}

// DeleteProgress removes the progress entry for a record, if any.
func (s *SQLiteStore) DeleteProgress(recordID string) error {
	if _, err := s.db.Exec("DELETE FROM upload_progress WHERE record_id = ?", recordID); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "failed to delete progress", err)
	}
	return nil
}

// ListProgress returns all progress entries.
func (s *SQLiteStore) ListProgress() ([]*models.UploadProgress, error) {
	rows, err := s.db.Query("SELECT record_id, loaded, total, percentage, updated_at FROM upload_progress")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, "failed to list progress", err)
	}
	defer rows.Close()

	var entries []*models.UploadProgress
	for rows.Next() {
		var p models.UploadProgress
		var updatedAt int64
		if err := rows.Scan(&p.RecordID, &p.Loaded, &p.Total, &p.Percentage, &updatedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStore, "failed to scan progress", err)
		}
		p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		entries = append(entries, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, "failed to list progress", err)
	}
	return entries, nil
}

// =====================================================
// helpers
// =====================================================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var rec models.Record
	var remotePath sql.NullString
	var localStatus, remoteStatus string
	var createdAt, lastModified int64
	err := row.Scan(&rec.ID, &rec.Filename, &rec.SizeBytes, &rec.DurationMS,
		&remotePath, &localStatus, &remoteStatus, &rec.RetryCount,
		&createdAt, &lastModified, &rec.Payload)
	if err != nil {
		return nil, err
	}
	rec.RemotePath = remotePath.String
	rec.LocalStatus = models.UploadStatus(localStatus)
	rec.RemoteStatus = models.UploadStatus(remoteStatus)
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	rec.LastModified = time.UnixMilli(lastModified).UTC()
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
