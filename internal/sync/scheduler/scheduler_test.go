package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/twardell/clipsync/internal/errors"
	syncpkg "github.com/twardell/clipsync/internal/sync"
)

type fakeSyncer struct {
	calls atomic.Int64
	err   error
}

func (f *fakeSyncer) Sync(ctx context.Context) (*syncpkg.Result, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &syncpkg.Result{}, nil
}

func waitForCalls(t *testing.T, syncer *fakeSyncer, want int64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if syncer.calls.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("scheduler made %d sync calls, want at least %d", syncer.calls.Load(), want)
}

func TestSchedulerTriggersSync(t *testing.T) {
	syncer := &fakeSyncer{}
	s := New(syncer, 50*time.Millisecond)

	require.NoError(t, s.Start())
	defer s.Stop()

	waitForCalls(t, syncer, 2)
}

func TestSchedulerStopHaltsTriggers(t *testing.T) {
	syncer := &fakeSyncer{}
	s := New(syncer, 50*time.Millisecond)

	require.NoError(t, s.Start())
	waitForCalls(t, syncer, 1)
	s.Stop()

	settled := syncer.calls.Load()
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, settled, syncer.calls.Load())
}

func TestSchedulerToleratesOffline(t *testing.T) {
	syncer := &fakeSyncer{err: apperrors.New(apperrors.ErrOffline, "unreachable")}
	s := New(syncer, 50*time.Millisecond)

	require.NoError(t, s.Start())
	defer s.Stop()

	// Offline passes are absorbed; the schedule keeps firing.
	waitForCalls(t, syncer, 2)
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	syncer := &fakeSyncer{}
	s := New(syncer, time.Hour)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	s.Stop()
	s.Stop()
}

func TestSchedulerConcurrentStartStop(t *testing.T) {
	s := New(&fakeSyncer{}, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Start())
		}()
	}
	wg.Wait()
	s.Stop()
}
