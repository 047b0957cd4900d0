// internal/keyer/clock.go
package keyer

import (
	"context"
	"time"

	"github.com/ColonelBlimp/cwkeyer/internal/cw"
)

// Clock supplies wrapping millisecond timestamps and bounded waits.
type Clock interface {
	Now() cw.Millis
	// Sleep waits for d or until ctx is done, returning ctx.Err() in the latter case
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock counts milliseconds from its creation on the monotonic clock,
// truncated to 32 bits so it wraps like a hardware uptime counter.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a clock starting at zero.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Now implements Clock.
func (c *SystemClock) Now() cw.Millis {
	return cw.Millis(uint32(time.Since(c.start).Milliseconds()))
}

// Sleep implements Clock.
func (c *SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// VirtualClock is a manually advanced clock. Sleep advances it instantly.
type VirtualClock struct {
	now cw.Millis
}

// NewVirtualClock creates a virtual clock at the given time.
func NewVirtualClock(at cw.Millis) *VirtualClock {
	return &VirtualClock{now: at}
}

// Now implements Clock.
func (c *VirtualClock) Now() cw.Millis {
	return c.now
}

// Advance moves the clock forward by d.
func (c *VirtualClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// Sleep implements Clock.
func (c *VirtualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}
