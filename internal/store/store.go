// Package store provides the local record store: a transactional persistence
// surface for records, the pending-operation queue and transient upload
// progress. It holds no business logic; the sync engine is its only writer.
package store

import "github.com/twardell/clipsync/internal/models"

// Store is the persistence contract consumed by the sync engine. Every call
// is atomic with respect to its table.
type Store interface {
	// Record operations. PutRecord upserts the full record including its
	// binary payload.
	PutRecord(rec *models.Record) error
	GetRecord(id string) (*models.Record, error)
	DeleteRecord(id string) error
	ListRecords() ([]*models.Record, error)

	// ReplaceRecord promotes a record to a new identity as a single
	// transaction: the old row is deleted and the new one inserted, never an
	// in-place rekey.
	ReplaceRecord(oldID string, rec *models.Record) error

	// Pending-operation queue. ListOperations returns operations in creation
	// order.
	PutOperation(op *models.PendingOperation) error
	DeleteOperation(id string) error
	ListOperations() ([]*models.PendingOperation, error)

	// Transient upload progress, keyed by record id.
	PutProgress(p *models.UploadProgress) error
	GetProgress(recordID string) (*models.UploadProgress, error)
	DeleteProgress(recordID string) error
	ListProgress() ([]*models.UploadProgress, error)

	Close() error
}
