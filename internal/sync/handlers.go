package sync

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/twardell/clipsync/internal/errors"
	"github.com/twardell/clipsync/internal/logging"
	"github.com/twardell/clipsync/internal/models"
)

// handleUpload pushes a record to the remote service:
// create metadata -> stream payload -> re-fetch for the remote path ->
// promote the record to its server-issued identity. Any failure after the
// metadata record was created triggers best-effort deletion of the orphaned
// remote record, and the operation stays queued unless the failure is
// permanent.
func (e *Engine) handleUpload(ctx context.Context, op *models.PendingOperation) error {
	rec, err := e.st.GetRecord(op.TargetID)
	if err != nil {
		// The record vanished locally; the operation is stale.
		return err
	}

	if int64(len(rec.Payload)) > e.remote.MaxUploadBytes() {
		rec.RemoteStatus = models.StatusFailed
		rec.Touch()
		if putErr := e.st.PutRecord(rec); putErr != nil {
			return putErr
		}
		return apperrors.Newf(apperrors.ErrPayloadTooLarge,
			"payload is %d bytes, ceiling is %d", len(rec.Payload), e.remote.MaxUploadBytes())
	}

	rec.RemoteStatus = models.StatusUploading
	rec.Touch()
	if err := e.st.PutRecord(rec); err != nil {
		return err
	}

	created, err := e.remote.CreateRecord(ctx, rec)
	if err != nil {
		e.markUploadFailed(rec)
		return err
	}

	onProgress := func(loaded, total int64) {
		if err := e.st.PutProgress(models.NewUploadProgress(rec.ID, loaded, total)); err != nil {
			logging.L().Warn("failed to persist upload progress", zap.Error(err))
		}
		e.observers.notify()
	}

	if err := e.remote.UploadPayload(ctx, created.ID, rec.Filename, rec.Payload, onProgress); err != nil {
		e.rollbackUpload(ctx, rec, created.ID)
		return err
	}

	// The cloud path is populated only after the transfer completes
	// server-side; the upload response alone is not sufficient.
	final, err := e.remote.GetRecord(ctx, created.ID)
	if err != nil {
		e.rollbackUpload(ctx, rec, created.ID)
		return err
	}
	if final.RemotePath == "" {
		e.rollbackUpload(ctx, rec, created.ID)
		return apperrors.Newf(apperrors.ErrRemotePathMissing,
			"record %s has no remote path after upload", created.ID)
	}

	promoted := final.Clone()
	promoted.LocalStatus = models.StatusSuccess
	promoted.RemoteStatus = models.StatusSuccess
	promoted.Payload = rec.Payload

	if err := e.st.DeleteProgress(rec.ID); err != nil {
		return err
	}
	if err := e.st.ReplaceRecord(rec.ID, promoted); err != nil {
		return err
	}

	logging.L().Info("record uploaded",
		zap.String("local_id", rec.ID),
		zap.String("record_id", promoted.ID),
		zap.String("remote_path", promoted.RemotePath))
	return nil
}

// rollbackUpload cleans up after a failed upload whose remote metadata
// record already exists: it deletes the orphaned remote record (best-effort,
// logged but never escalated), marks the local record failed and drops the
// progress entry.
func (e *Engine) rollbackUpload(ctx context.Context, rec *models.Record, remoteID string) {
	if err := e.remote.DeleteRecord(ctx, remoteID); err != nil &&
		!apperrors.Is(err, apperrors.ErrRemoteNotFound) {
		logging.L().Warn("failed to delete orphaned remote record",
			zap.String("record_id", remoteID), zap.Error(err))
	}
	e.markUploadFailed(rec)
	if err := e.st.DeleteProgress(rec.ID); err != nil {
		logging.L().Warn("failed to delete progress entry",
			zap.String("record_id", rec.ID), zap.Error(err))
	}
}

func (e *Engine) markUploadFailed(rec *models.Record) {
	rec.RemoteStatus = models.StatusFailed
	rec.RetryCount++
	rec.Touch()
	if err := e.st.PutRecord(rec); err != nil {
		logging.L().Warn("failed to persist failed upload state",
			zap.String("record_id", rec.ID), zap.Error(err))
	}
}

// handleRename sends the queued filename to the remote service. On success
// the local record is reconciled too, covering operations queued before a
// previous partially-applied sync.
func (e *Engine) handleRename(ctx context.Context, op *models.PendingOperation) error {
	if _, err := e.remote.RenameRecord(ctx, op.TargetID, op.NewFilename); err != nil {
		return err
	}

	rec, err := e.st.GetRecord(op.TargetID)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if rec.Filename != op.NewFilename {
		rec.Filename = op.NewFilename
		rec.Touch()
		return e.st.PutRecord(rec)
	}
	return nil
}

// handleDelete removes the record remotely. A not-found response means the
// resource is already gone and counts as success, including defensive
// cleanup of any lingering local entry under that id.
func (e *Engine) handleDelete(ctx context.Context, op *models.PendingOperation) error {
	err := e.remote.DeleteRecord(ctx, op.TargetID)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrRemoteNotFound) {
			return err
		}
		logging.L().Debug("remote record already gone",
			zap.String("record_id", op.TargetID))
	}
	return e.st.DeleteRecord(op.TargetID)
}
