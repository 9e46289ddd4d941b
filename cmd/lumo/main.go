package main

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/toqueteos/webbrowser"

	"github.com/lumo-cam/lumo/internal/bridge"
	"github.com/lumo-cam/lumo/internal/capture"
	"github.com/lumo-cam/lumo/internal/config"
	"github.com/lumo-cam/lumo/internal/events"
	"github.com/lumo-cam/lumo/internal/handlers"
	"github.com/lumo-cam/lumo/internal/logger"
	"github.com/lumo-cam/lumo/internal/media"
	"github.com/lumo-cam/lumo/internal/router"
	"github.com/lumo-cam/lumo/internal/service"
	"github.com/lumo-cam/lumo/internal/state"
)

// Desktop dev shell: runs the whole capture core against the simulated
// camera so flows can be exercised without a device.
func main() {
	slogger := logger.NewText(slog.LevelDebug)

	cfg, err := config.Load()
	if err != nil {
		slogger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	for _, dir := range []string{cfg.CacheDir, cfg.StateDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			slogger.Error("failed to create directory", "dir", dir, "err", err)
			os.Exit(1)
		}
	}

	store, err := state.Open(cfg.StateDir, slogger)
	if err != nil {
		slogger.Error("failed to open state store", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	simDir := filepath.Join(cfg.CacheDir, "sim-dcim")
	if err := os.MkdirAll(simDir, 0700); err != nil {
		slogger.Error("failed to create simulator directory", "err", err)
		os.Exit(1)
	}
	sim := bridge.NewSimulator(simDir)
	bridge.Register(sim)

	hub := events.NewHub(slogger)
	dispatcher := events.NewDispatcher(hub, slogger)
	svc := service.NewCameraService(dispatcher, slogger)

	proc := media.NewProcessor(cfg.CacheDir, bridge.Source{Camera: sim}, slogger)
	defer proc.Close()

	gate := capture.NewGate(sim, slogger)
	guard := capture.NewGuard(sim, holdCeiling(cfg), slogger)
	coord := capture.NewCoordinator(
		sim, gate, guard, proc, store, svc,
		filepath.Join(cfg.CacheDir, "pending"),
		cfg.GalleryMaxItems,
		slogger,
	)
	svc.SetCoordinator(coord)
	coord.Resume()

	secret, err := base64.StdEncoding.DecodeString(cfg.ChannelSecret)
	if err != nil || len(secret) == 0 {
		secret = []byte(cfg.ChannelSecret)
	}

	listenAddr := cfg.ListenAddr
	if listenAddr == "" {
		listenAddr = "127.0.0.1:0"
	}
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		slogger.Error("failed to listen", "addr", listenAddr, "err", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf("http://%s", listener.Addr())
	h := handlers.New(svc, hub, cfg.CacheDir, addr, slogger)
	mux := router.New(h, secret)

	slogger.Info("server starting", "addr", addr)

	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			slogger.Error("server error", "err", err)
		}
	}()

	if err := webbrowser.Open(addr); err != nil {
		slogger.Warn("could not open browser", "err", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slogger.Info("shutting down")
	coord.Close()
	srv.Close()
}

func holdCeiling(cfg *config.Config) time.Duration {
	if cfg.KeepAliveCeilingSeconds > 0 {
		return time.Duration(cfg.KeepAliveCeilingSeconds) * time.Second
	}
	return capture.DefaultHoldCeiling
}
