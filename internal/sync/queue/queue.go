// Package queue manages the durable pending-operation queue on top of the
// local record store.
package queue

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/twardell/clipsync/internal/ids"
	"github.com/twardell/clipsync/internal/logging"
	"github.com/twardell/clipsync/internal/models"
	"github.com/twardell/clipsync/internal/store"
)

// Manager owns the pending-operation table. It enforces the queue
// invariants: at most one effective operation per (record, type), with
// rename coalescing to the latest name.
type Manager struct {
	// Guards the list-then-write sequences used for coalescing; the store
	// itself is only atomic per call.
	mu sync.Mutex
	st store.Store
}

// NewManager creates a queue Manager over the given store.
func NewManager(st store.Store) *Manager {
	return &Manager{st: st}
}

// EnqueueUpload queues an upload for the record unless one is already
// queued. Upload is the only operation permitted for a record that has no
// remote counterpart yet, because it is the operation that creates one.
func (m *Manager) EnqueueUpload(targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops, err := m.st.ListOperations()
	if err != nil {
		return err
	}
	for _, op := range ops {
		if op.Type == models.OpUpload && op.TargetID == targetID {
			return nil
		}
	}
	return m.put(models.OpUpload, targetID, "")
}

// EnqueueRename queues a rename, dropping any rename already queued for the
// same record so only the latest name is ever sent.
func (m *Manager) EnqueueRename(targetID, newFilename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops, err := m.st.ListOperations()
	if err != nil {
		return err
	}
	for _, op := range ops {
		if op.Type == models.OpRename && op.TargetID == targetID {
			if err := m.st.DeleteOperation(op.ID); err != nil {
				return err
			}
		}
	}
	return m.put(models.OpRename, targetID, newFilename)
}

// EnqueueDelete queues a remote delete for the record unless one is already
// queued.
func (m *Manager) EnqueueDelete(targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops, err := m.st.ListOperations()
	if err != nil {
		return err
	}
	for _, op := range ops {
		if op.Type == models.OpDelete && op.TargetID == targetID {
			return nil
		}
	}
	return m.put(models.OpDelete, targetID, "")
}

// Remove deletes one operation from the queue.
func (m *Manager) Remove(opID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.DeleteOperation(opID)
}

// RemoveForRecord drops every queued operation referencing the record.
// Called when the record is deleted locally; queued uploads and renames are
// moot once the record is gone.
func (m *Manager) RemoveForRecord(targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops, err := m.st.ListOperations()
	if err != nil {
		return err
	}
	for _, op := range ops {
		if op.TargetID == targetID {
			if err := m.st.DeleteOperation(op.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// List returns all queued operations in creation order.
func (m *Manager) List() ([]*models.PendingOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.ListOperations()
}

// PendingDeleteTargets returns the set of record ids with a queued delete.
// A pending delete always wins locally until confirmed.
func (m *Manager) PendingDeleteTargets() (map[string]struct{}, error) {
	ops, err := m.List()
	if err != nil {
		return nil, err
	}
	targets := make(map[string]struct{})
	for _, op := range ops {
		if op.Type == models.OpDelete {
			targets[op.TargetID] = struct{}{}
		}
	}
	return targets, nil
}

func (m *Manager) put(opType models.OperationType, targetID, newFilename string) error {
	op := &models.PendingOperation{
		ID:          ids.NewOperation(string(opType), targetID),
		Type:        opType,
		TargetID:    targetID,
		NewFilename: newFilename,
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.st.PutOperation(op); err != nil {
		return err
	}
	logging.L().Debug("operation queued",
		zap.String("op_id", op.ID),
		zap.String("type", string(op.Type)),
		zap.String("target", op.TargetID))
	return nil
}
