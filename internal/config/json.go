package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/uniclip/uniclipboard/internal/flagx"
)

// Duration wraps time.Duration so JSON can specify intervals either as
// strings like "500ms" or as integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("duration: unsupported JSON value %v", v)
	}
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Zero values
// mean "not set" and leave the corresponding Config field untouched, so a
// partial file overrides only what it names.
type JsonConfig struct {
	VaultDir     string `json:"vault_dir"`
	DatabasePath string `json:"database_path"`
	BlobDir      string `json:"blob_dir"`
	SpoolDir     string `json:"spool_dir"`

	DeviceName string `json:"device_name"`
	ProfileID  string `json:"profile_id"`
	SpaceID    string `json:"space_id"`

	InlineThresholdBytes int64    `json:"inline_threshold_bytes"`
	CacheMaxCount        int      `json:"cache_max_count"`
	CacheMaxBytes        int64    `json:"cache_max_bytes"`
	SpoolMaxBytes        int64    `json:"spool_max_bytes"`
	SpoolTTL             Duration `json:"spool_ttl"`

	WorkerQueueSize int      `json:"worker_queue_size"`
	WorkerRetries   uint64   `json:"worker_retries"`
	WorkerBackoff   Duration `json:"worker_backoff"`
	JanitorInterval Duration `json:"janitor_interval"`

	WatchInterval  Duration `json:"watch_interval"`
	PairingTTL     Duration `json:"pairing_ttl"`
	SpaceAccessTTL Duration `json:"space_access_ttl"`
}

// parseJson overlays cfg with values loaded from a JSON file. The file path
// comes from the -c or -config flags; when neither is given no JSON is
// loaded. Read or unmarshal errors panic, matching the fail-fast startup of
// the rest of the loader.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFilePath()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	applyJson(cfg, &jc)
}

func applyJson(cfg *Config, jc *JsonConfig) {
	if jc.VaultDir != "" {
		cfg.VaultDir = jc.VaultDir
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.BlobDir != "" {
		cfg.BlobDir = jc.BlobDir
	}
	if jc.SpoolDir != "" {
		cfg.SpoolDir = jc.SpoolDir
	}
	if jc.DeviceName != "" {
		cfg.DeviceName = jc.DeviceName
	}
	if jc.ProfileID != "" {
		cfg.ProfileID = jc.ProfileID
	}
	if jc.SpaceID != "" {
		cfg.SpaceID = jc.SpaceID
	}
	if jc.InlineThresholdBytes > 0 {
		cfg.InlineThresholdBytes = jc.InlineThresholdBytes
	}
	if jc.CacheMaxCount > 0 {
		cfg.CacheMaxCount = jc.CacheMaxCount
	}
	if jc.CacheMaxBytes > 0 {
		cfg.CacheMaxBytes = jc.CacheMaxBytes
	}
	if jc.SpoolMaxBytes > 0 {
		cfg.SpoolMaxBytes = jc.SpoolMaxBytes
	}
	if jc.SpoolTTL.Duration > 0 {
		cfg.SpoolTTL = jc.SpoolTTL.Duration
	}
	if jc.WorkerQueueSize > 0 {
		cfg.WorkerQueueSize = jc.WorkerQueueSize
	}
	if jc.WorkerRetries > 0 {
		cfg.WorkerRetries = jc.WorkerRetries
	}
	if jc.WorkerBackoff.Duration > 0 {
		cfg.WorkerBackoff = jc.WorkerBackoff.Duration
	}
	if jc.JanitorInterval.Duration > 0 {
		cfg.JanitorInterval = jc.JanitorInterval.Duration
	}
	if jc.WatchInterval.Duration > 0 {
		cfg.WatchInterval = jc.WatchInterval.Duration
	}
	if jc.PairingTTL.Duration > 0 {
		cfg.PairingTTL = jc.PairingTTL.Duration
	}
	if jc.SpaceAccessTTL.Duration > 0 {
		cfg.SpaceAccessTTL = jc.SpaceAccessTTL.Duration
	}
}
