package sync

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/twardell/clipsync/internal/logging"
	"github.com/twardell/clipsync/internal/models"
)

// merge reconciles the local record set against the remote service with
// last-write-wins on the last-modified timestamp. A pending local delete
// always excludes the record regardless of where it appears. The resolved
// union is persisted locally and returned.
func (e *Engine) merge(ctx context.Context) ([]*models.Record, error) {
	locals, err := e.st.ListRecords()
	if err != nil {
		return nil, err
	}
	remotes, err := e.remote.ListRecords(ctx)
	if err != nil {
		return nil, err
	}
	pendingDeletes, err := e.queue.PendingDeleteTargets()
	if err != nil {
		return nil, err
	}

	localByID := make(map[string]*models.Record, len(locals))
	for _, l := range locals {
		localByID[l.ID] = l
	}
	remoteByID := make(map[string]*models.Record, len(remotes))
	for _, r := range remotes {
		remoteByID[r.ID] = r
	}

	var result []*models.Record

	for _, rem := range remotes {
		if _, deleted := pendingDeletes[rem.ID]; deleted {
			continue
		}

		local, ok := localByID[rem.ID]
		if !ok {
			resolved, err := e.adoptRemote(ctx, rem, locals, remoteByID)
			if err != nil {
				return nil, err
			}
			result = append(result, resolved)
			continue
		}

		resolved, err := e.resolveBoth(ctx, local, rem)
		if err != nil {
			return nil, err
		}
		result = append(result, resolved)
	}

	for _, local := range locals {
		if _, ok := remoteByID[local.ID]; ok {
			continue
		}
		if _, deleted := pendingDeletes[local.ID]; deleted {
			continue
		}
		// adoptRemote may have consumed this record as the local twin of a
		// remote entry; skip it if it no longer exists.
		if _, err := e.st.GetRecord(local.ID); err != nil {
			continue
		}

		resolved, err := e.resolveLocalOnly(local)
		if err != nil {
			return nil, err
		}
		result = append(result, resolved)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// adoptRemote inserts a record that exists only remotely. Before persisting
// it, the local set is searched for a not-yet-uploaded record with identical
// filename, size and duration: the same recording waiting for its server
// identity. When found, the local twin is superseded and its payload reused
// in preference to a fresh download.
func (e *Engine) adoptRemote(ctx context.Context, rem *models.Record, locals []*models.Record, remoteByID map[string]*models.Record) (*models.Record, error) {
	adopted := rem.Clone()

	if twin := findLocalTwin(rem, locals, remoteByID); twin != nil {
		if err := e.queue.RemoveForRecord(twin.ID); err != nil {
			return nil, err
		}
		if err := e.st.DeleteRecord(twin.ID); err != nil {
			return nil, err
		}
		adopted.Payload = twin.Payload
		logging.L().Debug("matched remote record to local twin",
			zap.String("record_id", rem.ID),
			zap.String("local_id", twin.ID))
	} else if rem.RemotePath != "" {
		payload, err := e.remote.DownloadPayload(ctx, rem.RemotePath)
		if err != nil {
			// Metadata is still worth keeping; the payload can be fetched on
			// a later pass.
			logging.L().Warn("failed to download payload",
				zap.String("record_id", rem.ID), zap.Error(err))
		} else {
			adopted.Payload = payload
		}
	}

	if err := e.st.PutRecord(adopted); err != nil {
		return nil, err
	}
	return adopted, nil
}

// resolveBoth applies last-write-wins to a record present on both sides.
// Local state carries the authoritative payload unless the remote copy is
// strictly newer.
func (e *Engine) resolveBoth(ctx context.Context, local, rem *models.Record) (*models.Record, error) {
	if !rem.LastModified.After(local.LastModified) {
		return local, nil
	}

	merged := rem.Clone()
	merged.Payload = local.Payload
	if rem.RemotePath != "" {
		payload, err := e.remote.DownloadPayload(ctx, rem.RemotePath)
		if err != nil {
			logging.L().Warn("failed to download newer payload, keeping local copy",
				zap.String("record_id", rem.ID), zap.Error(err))
		} else {
			merged.Payload = payload
		}
	}

	if err := e.st.PutRecord(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// resolveLocalOnly retains a record that exists only locally. A record that
// had reached a confirmed cloud copy but has vanished from the remote set is
// reverted to pending and re-queued for upload, recovering from server-side
// data loss.
func (e *Engine) resolveLocalOnly(local *models.Record) (*models.Record, error) {
	if local.RemoteStatus != models.StatusSuccess {
		return local, nil
	}

	logging.L().Warn("uploaded record vanished remotely, re-queueing upload",
		zap.String("record_id", local.ID))

	local.RemoteStatus = models.StatusPending
	local.RemotePath = ""
	local.Touch()
	if err := e.st.PutRecord(local); err != nil {
		return nil, err
	}
	if err := e.queue.EnqueueUpload(local.ID); err != nil {
		return nil, err
	}
	return local, nil
}

// findLocalTwin locates a local-only record matching the remote one by the
// filename/size/duration heuristic.
func findLocalTwin(rem *models.Record, locals []*models.Record, remoteByID map[string]*models.Record) *models.Record {
	for _, l := range locals {
		if _, ok := remoteByID[l.ID]; ok {
			continue
		}
		if l.SameRecording(rem) {
			return l
		}
	}
	return nil
}
