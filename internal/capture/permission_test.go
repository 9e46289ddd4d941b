package capture

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumo-cam/lumo/internal/bridge"
)

type fakePermissions struct {
	mu      sync.Mutex
	status  int
	grants  bool
	prompts int
}

func (f *fakePermissions) PermissionStatus() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakePermissions) RequestPermission(cb bridge.PermissionCallback) {
	f.mu.Lock()
	f.prompts++
	grants := f.grants
	f.mu.Unlock()
	cb.OnPermissionResult(grants)
}

func (f *fakePermissions) promptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts
}

func TestGateAlreadyGranted(t *testing.T) {
	src := &fakePermissions{status: bridge.PermissionGranted}
	g := NewGate(src, testLogger())

	status, err := g.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, status)
	assert.Equal(t, 0, src.promptCount())
}

func TestGatePromptGrants(t *testing.T) {
	src := &fakePermissions{status: bridge.PermissionUndetermined, grants: true}
	g := NewGate(src, testLogger())

	status, err := g.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, status)
	assert.Equal(t, 1, src.promptCount())
}

func TestGateDoesNotRepromptAfterDenial(t *testing.T) {
	src := &fakePermissions{status: bridge.PermissionUndetermined, grants: false}
	g := NewGate(src, testLogger())

	status, err := g.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionDenied, status)

	// Second Ensure must answer from the process-lifetime cache.
	status, err = g.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionDenied, status)
	assert.Equal(t, 1, src.promptCount())
}

func TestGatePlatformResetWins(t *testing.T) {
	src := &fakePermissions{status: bridge.PermissionUndetermined, grants: false}
	g := NewGate(src, testLogger())

	status, err := g.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionDenied, status)

	// The user flips the permission in system settings.
	src.mu.Lock()
	src.status = bridge.PermissionGranted
	src.mu.Unlock()

	status, err = g.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, status)
	assert.Equal(t, 1, src.promptCount())
}

func TestGateCancelledContext(t *testing.T) {
	src := &hangingPermissions{}
	g := NewGate(src, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Ensure(ctx)
	assert.Error(t, err)
}

type hangingPermissions struct{}

func (h *hangingPermissions) PermissionStatus() int { return bridge.PermissionUndetermined }

func (h *hangingPermissions) RequestPermission(cb bridge.PermissionCallback) {
	// Prompt never resolves; the caller's context has to bail out.
}
