package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/twardell/clipsync/internal/errors"
	"github.com/twardell/clipsync/internal/models"
)

func remoteRecord(id, filename string, modified time.Time) *models.Record {
	return &models.Record{
		ID:           id,
		Filename:     filename,
		SizeBytes:    7,
		DurationMS:   1500,
		RemotePath:   "https://cdn.example.com/videos/" + id + "/" + filename,
		LocalStatus:  models.StatusSuccess,
		RemoteStatus: models.StatusSuccess,
		CreatedAt:    modified,
		LastModified: modified,
	}
}

func TestListLocalOnlyWhenOffline(t *testing.T) {
	engine, rem, _ := newTestEngine(t, false)
	rec := create(t, engine, "clip.webm", []byte("x"))

	records, err := engine.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
	assert.Equal(t, 0, rem.listCalls)
}

func TestListSkipsMergeWhenNotRequested(t *testing.T) {
	engine, rem, _ := newTestEngine(t, true)
	create(t, engine, "clip.webm", []byte("x"))

	_, err := engine.List(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, rem.listCalls)
}

func TestMergeAdoptsRemoteOnlyRecord(t *testing.T) {
	engine, rem, st := newTestEngine(t, true)

	modified := time.Now().UTC().Truncate(time.Millisecond)
	rem.seed(remoteRecord("srv-1", "clip.webm", modified), []byte("payload"))

	records, err := engine.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "srv-1", records[0].ID)
	assert.Equal(t, []byte("payload"), records[0].Payload)

	// The adopted record is persisted locally.
	stored, err := st.GetRecord("srv-1")
	require.NoError(t, err)
	assert.Equal(t, "clip.webm", stored.Filename)
	assert.Equal(t, []byte("payload"), stored.Payload)
}

func TestMergeRemoteNewerWins(t *testing.T) {
	engine, rem, st := newTestEngine(t, true)

	old := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)
	local := remoteRecord("srv-1", "stale.webm", old)
	local.Payload = []byte("stale")
	require.NoError(t, st.PutRecord(local))

	rem.seed(remoteRecord("srv-1", "fresh.webm", old.Add(time.Minute)), []byte("payload"))

	records, err := engine.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fresh.webm", records[0].Filename)
	assert.Equal(t, []byte("payload"), records[0].Payload)

	stored, err := st.GetRecord("srv-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh.webm", stored.Filename)
}

func TestMergeLocalNewerWins(t *testing.T) {
	engine, rem, st := newTestEngine(t, true)

	old := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)
	rem.seed(remoteRecord("srv-1", "stale.webm", old), []byte("stale"))

	local := remoteRecord("srv-1", "fresh.webm", old.Add(time.Minute))
	local.Payload = []byte("local-payload")
	require.NoError(t, st.PutRecord(local))

	records, err := engine.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fresh.webm", records[0].Filename)
	assert.Equal(t, []byte("local-payload"), records[0].Payload)
}

func TestMergeMatchesLocalTwin(t *testing.T) {
	engine, rem, st := newTestEngine(t, true)

	// A capture queued offline on this device...
	local := create(t, engine, "clip.webm", []byte("twin-payload"))

	// ...that a previous interrupted sync already pushed server-side.
	modified := time.Now().UTC().Truncate(time.Millisecond)
	srv := remoteRecord("srv-1", "clip.webm", modified)
	srv.SizeBytes = local.SizeBytes
	srv.DurationMS = local.DurationMS
	rem.seed(srv, nil)

	records, err := engine.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "srv-1", records[0].ID)
	assert.Equal(t, []byte("twin-payload"), records[0].Payload)

	// The twin and its queued upload are gone.
	_, err = st.GetRecord(local.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	ops, err := st.ListOperations()
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestMergeExcludesPendingDeletes(t *testing.T) {
	engine, rem, st := newTestEngine(t, true)

	modified := time.Now().UTC().Truncate(time.Millisecond)
	rec := remoteRecord("srv-1", "clip.webm", modified)
	require.NoError(t, st.PutRecord(rec))
	rem.seed(rec, []byte("payload"))

	require.NoError(t, engine.DeleteLocally(context.Background(), "srv-1"))

	records, err := engine.List(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, records)

	// The delete still waits in the queue; merge must not resurrect the
	// record locally in the meantime.
	_, err = st.GetRecord("srv-1")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestMergeRequeuesVanishedRemote(t *testing.T) {
	engine, _, st := newTestEngine(t, true)

	modified := time.Now().UTC().Truncate(time.Millisecond)
	rec := remoteRecord("srv-1", "clip.webm", modified)
	rec.Payload = []byte("payload")
	require.NoError(t, st.PutRecord(rec))

	records, err := engine.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.StatusPending, records[0].RemoteStatus)
	assert.Empty(t, records[0].RemotePath)

	ops, err := st.ListOperations()
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, models.OpUpload, ops[0].Type)
	assert.Equal(t, "srv-1", ops[0].TargetID)
}

func TestMergeLeavesNeverUploadedLocalAlone(t *testing.T) {
	engine, _, st := newTestEngine(t, true)
	rec := create(t, engine, "clip.webm", []byte("x"))

	records, err := engine.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
	assert.Equal(t, models.StatusPending, records[0].RemoteStatus)

	// Still exactly one queued upload, from the create.
	ops, err := st.ListOperations()
	require.NoError(t, err)
	require.Len(t, ops, 1)
}

func TestMergeFailureDegradesToLocalView(t *testing.T) {
	engine, rem, _ := newTestEngine(t, true)
	rem.listErr = apperrors.New(apperrors.ErrTransient, "service unavailable")
	rec := create(t, engine, "clip.webm", []byte("x"))

	records, err := engine.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
}

func TestMergeOrdersByCreation(t *testing.T) {
	engine, rem, st := newTestEngine(t, true)

	base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)
	rem.seed(remoteRecord("srv-2", "second.webm", base.Add(time.Minute)), []byte("b"))
	rem.seed(remoteRecord("srv-1", "first.webm", base), []byte("a"))

	third := remoteRecord("srv-3", "third.webm", base.Add(2*time.Minute))
	require.NoError(t, st.PutRecord(third))
	rem.seed(third, []byte("c"))

	records, err := engine.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "srv-1", records[0].ID)
	assert.Equal(t, "srv-2", records[1].ID)
	assert.Equal(t, "srv-3", records[2].ID)
}
