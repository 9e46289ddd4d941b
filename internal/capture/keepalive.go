package capture

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultHoldCeiling bounds how long a foreground hold may outlive a
// lost OS callback. Platforms cap background execution well below this.
const DefaultHoldCeiling = 3 * time.Minute

// HoldController is the native mechanism that keeps the process
// resident while an external capture UI owns the foreground.
type HoldController interface {
	StartForegroundHold() error
	StopForegroundHold() error
}

// Guard wraps a HoldController with idempotent start/stop and a hard
// expiry ceiling. Expiry releases the hold only; it never cancels the
// logical operation.
type Guard struct {
	ctrl    HoldController
	ceiling time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	active bool
	timer  *time.Timer
}

func NewGuard(ctrl HoldController, ceiling time.Duration, logger *slog.Logger) *Guard {
	if ceiling <= 0 {
		ceiling = DefaultHoldCeiling
	}
	return &Guard{ctrl: ctrl, ceiling: ceiling, logger: logger}
}

// Start takes the hold. Calling while already started is a no-op.
func (g *Guard) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active {
		return
	}
	if err := g.ctrl.StartForegroundHold(); err != nil {
		// Best effort: a failed hold must not block the capture flow.
		g.logger.Warn("foreground hold start failed", "err", err)
		return
	}
	g.active = true
	g.timer = time.AfterFunc(g.ceiling, g.expire)
}

// Stop releases the hold. Safe to call when never started, and safe to
// call more than once.
func (g *Guard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.release(false)
}

func (g *Guard) expire() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active {
		g.logger.Warn("foreground hold expired before callback", "ceiling", g.ceiling)
	}
	g.release(true)
}

func (g *Guard) release(expired bool) {
	if !g.active {
		return
	}
	g.active = false
	if g.timer != nil && !expired {
		g.timer.Stop()
	}
	g.timer = nil
	if err := g.ctrl.StopForegroundHold(); err != nil {
		g.logger.Warn("foreground hold stop failed", "err", err)
	}
}
