package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) Health(ctx context.Context) error { return f(ctx) }

func TestOnlineHealthy(t *testing.T) {
	p := New(checkerFunc(func(ctx context.Context) error { return nil }), time.Second)
	assert.True(t, p.Online(context.Background()))
}

func TestOnlineUnreachable(t *testing.T) {
	p := New(checkerFunc(func(ctx context.Context) error {
		return errors.New("connection refused")
	}), time.Second)
	assert.False(t, p.Online(context.Background()))
}

func TestOnlineTimeout(t *testing.T) {
	p := New(checkerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), 20*time.Millisecond)

	start := time.Now()
	assert.False(t, p.Online(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestOnlineIsStateless(t *testing.T) {
	var healthy bool
	p := New(checkerFunc(func(ctx context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("down")
	}), time.Second)

	assert.False(t, p.Online(context.Background()))
	healthy = true
	assert.True(t, p.Online(context.Background()))
}
