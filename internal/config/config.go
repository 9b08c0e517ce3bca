package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the UniClipboard agent.
//
// Paths: VaultDir is the root for local state; DatabasePath, BlobDir and
// SpoolDir default to locations under VaultDir when left empty.
//
// Units: sizes are bytes, intervals are time.Duration values.
type Config struct {
	VaultDir     string
	DatabasePath string
	BlobDir      string
	SpoolDir     string

	DeviceName string
	ProfileID  string
	SpaceID    string

	InlineThresholdBytes int64
	CacheMaxCount        int
	CacheMaxBytes        int64
	SpoolMaxBytes        int64
	SpoolTTL             time.Duration

	WorkerQueueSize int
	WorkerRetries   uint64
	WorkerBackoff   time.Duration
	JanitorInterval time.Duration

	WatchInterval  time.Duration
	PairingTTL     time.Duration
	SpaceAccessTTL time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	c.VaultDir = filepath.Join(home, ".uniclipboard")

	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "uniclip-device"
	}
	c.DeviceName = host
	c.ProfileID = "default"
	c.SpaceID = "default"

	c.InlineThresholdBytes = 32 * 1024
	c.CacheMaxCount = 128
	c.CacheMaxBytes = 64 * 1024 * 1024
	c.SpoolMaxBytes = 512 * 1024 * 1024
	c.SpoolTTL = 7 * 24 * time.Hour

	c.WorkerQueueSize = 64
	c.WorkerRetries = 3
	c.WorkerBackoff = 500 * time.Millisecond
	c.JanitorInterval = time.Hour

	c.WatchInterval = 500 * time.Millisecond
	c.PairingTTL = 2 * time.Minute
	c.SpaceAccessTTL = 2 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones. Derived paths left empty by every source are
// resolved under VaultDir last, so overriding the vault directory moves them
// along with it.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	cfg.resolvePaths()
	return cfg
}

func (c *Config) resolvePaths() {
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.VaultDir, "uniclipboard.db")
	}
	if c.BlobDir == "" {
		c.BlobDir = filepath.Join(c.VaultDir, "blobs")
	}
	if c.SpoolDir == "" {
		c.SpoolDir = filepath.Join(c.VaultDir, "spool")
	}
}
