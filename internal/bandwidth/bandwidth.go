// Package bandwidth provides the one enforcement hook the spec sanctions:
// a global token bucket workers drain before each chunk write. It is a
// no-op at zero overhead when no limit is configured.
package bandwidth

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Manager wraps a rate.Limiter that is rate.Inf (unlimited) until SetLimit
// is called with a positive value, grounded on the teacher's
// BandwidthManager minus its per-task priority bookkeeping, which has no
// equivalent in the spec.
type Manager struct {
	limiter *rate.Limiter
	enabled atomic.Bool
}

// NewManager returns a Manager with enforcement disabled.
func NewManager() *Manager {
	return &Manager{limiter: rate.NewLimiter(rate.Inf, 0)}
}

// SetLimit sets the global limit in bytes per second. A value <= 0
// disables enforcement.
func (m *Manager) SetLimit(bytesPerSec int) {
	if bytesPerSec <= 0 {
		m.enabled.Store(false)
		m.limiter.SetLimit(rate.Inf)
		return
	}
	m.enabled.Store(true)
	m.limiter.SetLimit(rate.Limit(bytesPerSec))
	m.limiter.SetBurst(bytesPerSec)
}

// Wait blocks until n bytes may be consumed from the bucket, returning
// immediately when enforcement is disabled.
func (m *Manager) Wait(ctx context.Context, n int) error {
	if !m.enabled.Load() {
		return nil
	}
	// WaitN rejects any n above the burst outright, so larger requests
	// are taken from the bucket one burst at a time.
	for n > 0 {
		step := min(n, max(m.limiter.Burst(), 1))
		if err := m.limiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
