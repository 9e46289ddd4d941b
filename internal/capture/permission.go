package capture

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/lumo-cam/lumo/internal/bridge"
)

// PermissionStatus is the gate's terminal answer.
type PermissionStatus int

const (
	PermissionGranted PermissionStatus = iota
	PermissionDenied
)

// PermissionSource is the slice of the native camera the gate needs.
type PermissionSource interface {
	PermissionStatus() int
	RequestPermission(cb bridge.PermissionCallback)
}

// Gate checks and, when undetermined, requests the capture permission.
// A prompt outcome is cached for the process lifetime; concurrent
// Ensure calls while a prompt is showing coalesce onto one prompt.
type Gate struct {
	src    PermissionSource
	logger *slog.Logger

	sfg singleflight.Group

	mu         sync.Mutex
	determined bool
	granted    bool
}

func NewGate(src PermissionSource, logger *slog.Logger) *Gate {
	return &Gate{src: src, logger: logger}
}

// Ensure resolves the camera permission, prompting the user at most
// once. It suspends while the system prompt is showing; ctx bounds that
// wait.
func (g *Gate) Ensure(ctx context.Context) (PermissionStatus, error) {
	// The platform answer wins, so a permission reset in system
	// settings is picked up without restarting the process.
	switch g.src.PermissionStatus() {
	case bridge.PermissionGranted:
		g.record(true)
		return PermissionGranted, nil
	case bridge.PermissionDenied:
		g.record(false)
		return PermissionDenied, nil
	}

	// Undetermined: if a prompt already resolved this process lifetime,
	// do not prompt again.
	g.mu.Lock()
	if g.determined {
		granted := g.granted
		g.mu.Unlock()
		return asStatus(granted), nil
	}
	g.mu.Unlock()

	v, err, _ := g.sfg.Do("camera", func() (any, error) {
		ch := make(chan bool, 1)
		g.src.RequestPermission(permissionResult{ch})
		select {
		case granted := <-ch:
			g.record(granted)
			return granted, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	})
	if err != nil {
		return PermissionDenied, err
	}
	return asStatus(v.(bool)), nil
}

func (g *Gate) record(granted bool) {
	g.mu.Lock()
	g.determined = true
	g.granted = granted
	g.mu.Unlock()
	g.logger.Debug("camera permission determined", "granted", granted)
}

func asStatus(granted bool) PermissionStatus {
	if granted {
		return PermissionGranted
	}
	return PermissionDenied
}

type permissionResult struct {
	ch chan bool
}

func (p permissionResult) OnPermissionResult(granted bool) {
	select {
	case p.ch <- granted:
	default:
	}
}
