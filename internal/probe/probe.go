// Package probe provides the connectivity prober: a bounded-timeout liveness
// check against the remote service.
package probe

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/twardell/clipsync/internal/logging"
)

// HealthChecker is the slice of the remote client the prober needs.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Prober answers "is the remote service reachable right now" with a single
// bounded probe. It keeps no state; every call asks the service again.
type Prober struct {
	checker HealthChecker
	timeout time.Duration
}

// New creates a Prober. A zero timeout defaults to five seconds.
func New(checker HealthChecker, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Prober{checker: checker, timeout: timeout}
}

// Online reports whether the remote service answered the liveness probe
// within the configured timeout. Timeouts and connection errors both read as
// offline.
func (p *Prober) Online(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.checker.Health(probeCtx); err != nil {
		logging.L().Debug("liveness probe failed", zap.Error(err))
		return false
	}
	return true
}
