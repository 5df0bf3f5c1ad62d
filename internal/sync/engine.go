// Package sync provides the offline synchronization engine: it owns the
// local record store, queues mutations performed while disconnected, drains
// the queue against the remote service, and reconciles divergent state with
// last-write-wins.
package sync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/twardell/clipsync/internal/auth"
	apperrors "github.com/twardell/clipsync/internal/errors"
	"github.com/twardell/clipsync/internal/ids"
	"github.com/twardell/clipsync/internal/logging"
	"github.com/twardell/clipsync/internal/models"
	"github.com/twardell/clipsync/internal/remote"
	"github.com/twardell/clipsync/internal/store"
	"github.com/twardell/clipsync/internal/sync/queue"
)

// RemoteAPI is the slice of the remote client the engine consumes.
type RemoteAPI interface {
	ListRecords(ctx context.Context) ([]*models.Record, error)
	GetRecord(ctx context.Context, id string) (*models.Record, error)
	CreateRecord(ctx context.Context, rec *models.Record) (*models.Record, error)
	RenameRecord(ctx context.Context, id, newName string) (*models.Record, error)
	DeleteRecord(ctx context.Context, id string) error
	UploadPayload(ctx context.Context, id, filename string, payload []byte, onProgress remote.ProgressFunc) error
	DownloadPayload(ctx context.Context, remotePath string) ([]byte, error)
	MaxUploadBytes() int64
}

// ConnectivityProber answers whether the remote service is reachable.
type ConnectivityProber interface {
	Online(ctx context.Context) bool
}

// Config controls engine behavior.
type Config struct {
	// AutoSyncOnCreate schedules a fire-and-forget sync attempt after every
	// local create. Failures of that attempt never propagate to the caller.
	AutoSyncOnCreate bool
}

// Engine orchestrates local mutation, queue management, merge-on-read and
// queue-draining sync. All engine state is process-scoped and explicitly
// constructed; Close is the teardown hook.
type Engine struct {
	st      store.Store
	queue   *queue.Manager
	remote  RemoteAPI
	prober  ConnectivityProber
	session *auth.Session
	cfg     Config

	// Single-flight guard: only one Sync pass runs at a time; a second
	// caller observes an immediate no-op.
	syncing atomic.Bool

	observers *observerSet
	validate  *validator.Validate
	bg        sync.WaitGroup
}

// NewEngine constructs an Engine over its collaborators.
func NewEngine(st store.Store, remoteAPI RemoteAPI, prober ConnectivityProber, session *auth.Session, cfg Config) *Engine {
	return &Engine{
		st:        st,
		queue:     queue.NewManager(st),
		remote:    remoteAPI,
		prober:    prober,
		session:   session,
		cfg:       cfg,
		observers: newObserverSet(),
		validate:  validator.New(),
	}
}

// Close waits for any in-flight background sync attempts to finish.
func (e *Engine) Close() {
	e.bg.Wait()
}

// Subscribe registers an observer and returns its unsubscribe hook.
func (e *Engine) Subscribe(fn Observer) func() {
	return e.observers.subscribe(fn)
}

// CreateParams carries the metadata for a newly captured recording.
type CreateParams struct {
	Filename   string `validate:"required,min=1,max=255"`
	DurationMS int64  `validate:"gte=0"`
}

// CreateLocally records a finished capture: it persists the record and its
// payload under a device-local identifier, queues the upload, and schedules
// an asynchronous sync attempt. The call succeeds as soon as the local write
// lands; remote-side conditions never fail it.
func (e *Engine) CreateLocally(ctx context.Context, params CreateParams, payload []byte) (*models.Record, error) {
	if !e.session.Authenticated() {
		return nil, apperrors.New(apperrors.ErrUnauthenticated, "no authenticated user")
	}
	if err := e.validate.Struct(params); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalid, "invalid record metadata", err)
	}

	now := time.Now().UTC()
	rec := &models.Record{
		ID:           ids.NewLocal(),
		Filename:     params.Filename,
		SizeBytes:    int64(len(payload)),
		DurationMS:   params.DurationMS,
		LocalStatus:  models.StatusSuccess,
		RemoteStatus: models.StatusPending,
		CreatedAt:    now,
		LastModified: now,
		Payload:      payload,
	}

	if err := e.st.PutRecord(rec); err != nil {
		return nil, err
	}
	if err := e.queue.EnqueueUpload(rec.ID); err != nil {
		return nil, err
	}

	logging.L().Info("record created locally",
		zap.String("record_id", rec.ID),
		zap.String("filename", rec.Filename),
		zap.Int64("size_bytes", rec.SizeBytes))

	e.observers.notify()

	if e.cfg.AutoSyncOnCreate {
		e.bg.Add(1)
		go func() {
			defer e.bg.Done()
			if _, err := e.Sync(context.Background()); err != nil {
				logging.L().Debug("background sync attempt failed", zap.Error(err))
			}
		}()
	}

	return rec, nil
}

// RenameLocally updates a record's filename immediately. If the record has
// been uploaded, a rename operation is queued with last-rename-wins
// coalescing; if not, the still-pending upload carries the new name.
func (e *Engine) RenameLocally(ctx context.Context, recordID, newName string) error {
	if err := e.validate.Var(newName, "required,min=1,max=255"); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalid, "invalid filename", err)
	}

	rec, err := e.st.GetRecord(recordID)
	if err != nil {
		return err
	}

	rec.Filename = newName
	rec.Touch()
	if err := e.st.PutRecord(rec); err != nil {
		return err
	}

	if rec.Uploaded() {
		if err := e.queue.EnqueueRename(recordID, newName); err != nil {
			return err
		}
	}

	logging.L().Info("record renamed locally",
		zap.String("record_id", recordID),
		zap.String("filename", newName))

	e.observers.notify()
	return nil
}

// DeleteLocally removes the record, its payload, its transient progress and
// every queued operation referencing it. Deletion is always instantaneous
// from the caller's perspective; if the record had a cloud copy, a delete
// operation is queued to remove it.
func (e *Engine) DeleteLocally(ctx context.Context, recordID string) error {
	rec, err := e.st.GetRecord(recordID)
	if err != nil {
		return err
	}

	if err := e.queue.RemoveForRecord(recordID); err != nil {
		return err
	}
	if err := e.st.DeleteProgress(recordID); err != nil {
		return err
	}
	if err := e.st.DeleteRecord(recordID); err != nil {
		return err
	}

	if rec.Uploaded() {
		if err := e.queue.EnqueueDelete(recordID); err != nil {
			return err
		}
	}

	logging.L().Info("record deleted locally",
		zap.String("record_id", recordID),
		zap.Bool("remote_delete_queued", rec.Uploaded()))

	e.observers.notify()
	return nil
}

// List returns the record set. With includeRemote the engine reconciles the
// local view against the remote service first; any remote failure during
// reconciliation silently degrades to the pure local view.
func (e *Engine) List(ctx context.Context, includeRemote bool) ([]*models.Record, error) {
	if !includeRemote || !e.prober.Online(ctx) {
		return e.st.ListRecords()
	}

	merged, err := e.merge(ctx)
	if err != nil {
		logging.L().Warn("merge failed, serving local view", zap.Error(err))
		return e.st.ListRecords()
	}
	return merged, nil
}

// Progress returns the transient upload-progress entry for a record, or nil
// when no upload is in flight.
func (e *Engine) Progress(recordID string) (*models.UploadProgress, error) {
	p, err := e.st.GetProgress(recordID)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// Result summarizes one queue drain pass.
type Result struct {
	// Skipped is set when another pass was already in flight and this call
	// was an immediate no-op.
	Skipped   bool
	Attempted int
	Completed int
	Failed    int
	Duration  time.Duration
	// Errors aggregates per-operation failures. They never abort the pass;
	// failed operations stay queued for the next one.
	Errors error
}

// Sync drains the pending-operation queue in creation order. It is
// single-flight: a concurrent call no-ops. Offline and unauthenticated
// conditions are the only errors surfaced; per-operation failures are
// absorbed into the result and the failing operations remain queued.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	if !e.session.Authenticated() {
		return nil, apperrors.New(apperrors.ErrUnauthenticated, "no authenticated user")
	}
	if !e.syncing.CompareAndSwap(false, true) {
		return &Result{Skipped: true}, nil
	}

	if !e.prober.Online(ctx) {
		e.syncing.Store(false)
		return nil, apperrors.New(apperrors.ErrOffline, "remote service unreachable")
	}

	// Release the guard before observers run, and notify exactly once per
	// pass regardless of individual outcomes.
	defer e.observers.notify()
	defer e.syncing.Store(false)

	start := time.Now()
	ops, err := e.queue.List()
	if err != nil {
		return nil, err
	}

	result := &Result{Attempted: len(ops)}
	var errs *multierror.Error

	for _, op := range ops {
		opErr := e.apply(ctx, op)
		if opErr == nil {
			result.Completed++
			if err := e.queue.Remove(op.ID); err != nil {
				errs = multierror.Append(errs, err)
			}
			continue
		}

		result.Failed++
		errs = multierror.Append(errs, opErr)

		if !apperrors.Retryable(opErr) {
			// Permanent outcome: drop the operation so it is never retried.
			if err := e.queue.Remove(op.ID); err != nil {
				errs = multierror.Append(errs, err)
			}
		}

		logging.L().Warn("queued operation failed",
			zap.String("op_id", op.ID),
			zap.String("type", string(op.Type)),
			zap.String("target", op.TargetID),
			zap.Bool("retryable", apperrors.Retryable(opErr)),
			zap.Error(opErr))
	}

	result.Duration = time.Since(start)
	result.Errors = errs.ErrorOrNil()

	logging.L().Info("sync pass finished",
		zap.Int("attempted", result.Attempted),
		zap.Int("completed", result.Completed),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// apply dispatches one queued operation to its handler.
func (e *Engine) apply(ctx context.Context, op *models.PendingOperation) error {
	switch op.Type {
	case models.OpUpload:
		return e.handleUpload(ctx, op)
	case models.OpRename:
		return e.handleRename(ctx, op)
	case models.OpDelete:
		return e.handleDelete(ctx, op)
	default:
		return apperrors.Newf(apperrors.ErrInternal, "unknown operation type %q", op.Type)
	}
}
