package config

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/lumo-cam/lumo/internal/credentials"
)

const (
	appName    = "lumo"
	configFile = "config.json"
)

type Config struct {
	// CacheDir is where captured and picked media is materialized.
	CacheDir string `json:"cache_dir"`
	// StateDir holds the pending-operation database.
	StateDir string `json:"state_dir"`
	// ListenAddr for the local HTTP surface. Empty means an ephemeral
	// loopback port.
	ListenAddr string `json:"listen_addr"`
	// KeepAliveCeilingSeconds bounds how long the foreground hold may
	// outlive a lost OS callback. Zero means the built-in default.
	KeepAliveCeilingSeconds int `json:"keepalive_ceiling_seconds"`
	// GalleryMaxItems caps multi-select picks when the caller does not.
	GalleryMaxItems int `json:"gallery_max_items"`

	ChannelSecret string `json:"-"`
}

func Load() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	appDir := filepath.Join(configDir, appName)

	path := filepath.Join(appDir, configFile)
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			cacheDir = appDir
		}
		cfg.CacheDir = filepath.Join(cacheDir, appName, "media")
		cfg.StateDir = filepath.Join(appDir, "state")
		cfg.GalleryMaxItems = 25
		if err := os.MkdirAll(appDir, 0700); err != nil {
			return nil, err
		}
		out, _ := json.MarshalIndent(cfg, "", "  ")
		_ = os.WriteFile(path, out, 0600)
		log.Printf("Generated new config at: %s", path)
	}

	cfg.ChannelSecret, err = credentials.LoadAppSecret("channel_secret")
	if err != nil {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		cfg.ChannelSecret = base64.StdEncoding.EncodeToString(secret)
		if err := credentials.StoreAppSecret("channel_secret", cfg.ChannelSecret); err != nil {
			// Headless dev boxes often have no keyring service. The
			// ephemeral secret only invalidates client cookies on restart.
			log.Printf("keyring unavailable, using ephemeral channel secret: %v", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LUMO_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("LUMO_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("LUMO_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
}
