// Package mobile is the gomobile entry point. The native shell calls
// RegisterCamera with its NativeCamera implementation, then Start; the
// returned address hosts the call surface and event channel the
// embedding webview connects to.
package mobile

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/lumo-cam/lumo/internal/bridge"
	"github.com/lumo-cam/lumo/internal/capture"
	"github.com/lumo-cam/lumo/internal/events"
	"github.com/lumo-cam/lumo/internal/handlers"
	"github.com/lumo-cam/lumo/internal/logger"
	"github.com/lumo-cam/lumo/internal/media"
	"github.com/lumo-cam/lumo/internal/router"
	"github.com/lumo-cam/lumo/internal/service"
	"github.com/lumo-cam/lumo/internal/state"
)

var (
	mu       sync.Mutex
	stopFunc func()
)

// RegisterCamera is called once from native (Swift/Kotlin) before Start.
func RegisterCamera(c bridge.NativeCamera) {
	bridge.Register(c)
}

// Start boots the capture core under dataDir and returns the local
// server address. Pending operations persisted by a previous process
// incarnation are recovered before the server accepts calls.
func Start(dataDir string) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	if stopFunc != nil {
		return "", fmt.Errorf("server already running")
	}

	camera, err := bridge.Safe()
	if err != nil {
		return "", fmt.Errorf("call RegisterCamera before Start: %w", err)
	}

	slogger := logger.New(slog.LevelDebug)

	cacheDir := filepath.Join(dataDir, "media")
	stateDir := filepath.Join(dataDir, "state")
	for _, dir := range []string{cacheDir, stateDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	store, err := state.Open(stateDir, slogger)
	if err != nil {
		return "", fmt.Errorf("failed to open state store: %w", err)
	}

	hub := events.NewHub(slogger)
	dispatcher := events.NewDispatcher(hub, slogger)
	svc := service.NewCameraService(dispatcher, slogger)

	proc := media.NewProcessor(cacheDir, bridge.Source{Camera: camera}, slogger)

	gate := capture.NewGate(camera, slogger)
	guard := capture.NewGuard(camera, capture.DefaultHoldCeiling, slogger)
	coord := capture.NewCoordinator(
		camera, gate, guard, proc, store, svc,
		filepath.Join(cacheDir, "pending"),
		0,
		slogger,
	)
	svc.SetCoordinator(coord)
	coord.Resume()

	secret := channelSecret(dataDir, slogger)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		store.Close()
		proc.Close()
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	addr := fmt.Sprintf("http://127.0.0.1:%d", listener.Addr().(*net.TCPAddr).Port)
	h := handlers.New(svc, hub, cacheDir, addr, slogger)
	mux := router.New(h, secret)

	slogger.Info("mobile server starting", "addr", addr)

	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			slogger.Error("server error", "err", err)
		}
	}()

	stopFunc = func() {
		coord.Close()
		srv.Close()
		listener.Close()
		proc.Close()
		store.Close()
	}

	return addr, nil
}

// Stop shuts the server down. Pending operations stay persisted and
// are recovered on the next Start.
func Stop() {
	mu.Lock()
	defer mu.Unlock()

	if stopFunc != nil {
		stopFunc()
		stopFunc = nil
	}
}

// channelSecret loads or mints the cookie-signing secret. The OS
// keyring is not reachable from the Go side on mobile, so a per-install
// file inside the app sandbox carries it.
func channelSecret(dataDir string, slogger *slog.Logger) []byte {
	path := filepath.Join(dataDir, "channel_secret")
	if data, err := os.ReadFile(path); err == nil && len(data) >= 32 {
		return data
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		slogger.Error("could not generate channel secret", "err", err)
	}
	if err := os.WriteFile(path, secret, 0600); err != nil {
		slogger.Warn("channel secret not persisted, cookies reset on restart", "err", err)
	}
	return secret
}
