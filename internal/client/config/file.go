package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/timex"
	"github.com/pelletier/go-toml/v2"
)

// FileConfig is the on-disk shape of Config. Pointer fields distinguish
// "absent" from a zero value so a file only overrides what it names.
type FileConfig struct {
	ServerURL           *string         `json:"server_url" toml:"server_url"`
	RealtimeURL         *string         `json:"realtime_url" toml:"realtime_url"`
	StatePath           *string         `json:"state_path" toml:"state_path"`
	CacheTTL            *timex.Duration `json:"cache_ttl" toml:"cache_ttl"`
	MaxRetries          *int            `json:"max_retries" toml:"max_retries"`
	RequestTimeout      *timex.Duration `json:"request_timeout" toml:"request_timeout"`
	StatusPollInterval  *timex.Duration `json:"status_poll_interval" toml:"status_poll_interval"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval" toml:"online_check_interval"`
	SyncInterval        *timex.Duration `json:"sync_interval" toml:"sync_interval"`
	Connectivity        *string         `json:"connectivity" toml:"connectivity"`
	StatusAddr          *string         `json:"status_addr" toml:"status_addr"`
	LogLevel            *string         `json:"log_level" toml:"log_level"`
	LogFormat           *string         `json:"log_format" toml:"log_format"`
	UpdatesEnabled      *bool           `json:"updates_enabled" toml:"updates_enabled"`
}

// parseFile overlays cfg with the values found in path.
func parseFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc FileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &fc)
	} else {
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc FileConfig) apply(cfg *Config) {
	setString(&cfg.ServerURL, fc.ServerURL)
	setString(&cfg.RealtimeURL, fc.RealtimeURL)
	setString(&cfg.StatePath, fc.StatePath)
	setDuration(&cfg.CacheTTL, fc.CacheTTL)
	if fc.MaxRetries != nil {
		cfg.MaxRetries = *fc.MaxRetries
	}
	setDuration(&cfg.RequestTimeout, fc.RequestTimeout)
	setDuration(&cfg.StatusPollInterval, fc.StatusPollInterval)
	setDuration(&cfg.OnlineCheckInterval, fc.OnlineCheckInterval)
	setDuration(&cfg.SyncInterval, fc.SyncInterval)
	setString(&cfg.Connectivity, fc.Connectivity)
	setString(&cfg.StatusAddr, fc.StatusAddr)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	if fc.UpdatesEnabled != nil {
		cfg.UpdatesEnabled = *fc.UpdatesEnabled
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
