package models

import "time"

// OperationType identifies the remote mutation a queued operation performs.
type OperationType string

const (
	OpUpload OperationType = "upload"
	OpRename OperationType = "rename"
	OpDelete OperationType = "delete"
)

// PendingOperation is a durable intent to apply a mutation remotely. It is
// created when a local mutation must propagate and removed only after the
// remote call it represents succeeds (or is judged already applied).
type PendingOperation struct {
	ID          string
	Type        OperationType
	TargetID    string
	NewFilename string // rename only
	CreatedAt   time.Time
}
