package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Connectivity sources understood by the client.
const (
	ConnectivityWebsocket = "websocket"
	ConnectivityProbe     = "probe"
	ConnectivityOffline   = "offline"
)

// Config holds runtime settings for the client.
type Config struct {
	ServerURL   string
	RealtimeURL string
	StatePath   string

	CacheTTL       time.Duration
	MaxRetries     int
	RequestTimeout time.Duration

	StatusPollInterval  time.Duration
	OnlineCheckInterval time.Duration
	// SyncInterval enables periodic draining while online. Zero disables it.
	SyncInterval time.Duration

	Connectivity string
	StatusAddr   string

	// UpdatesEnabled allows timesheet edits. The stock server has no
	// PUT /timesheets/{id} route, so edits are refused unless the server
	// is known to serve it.
	UpdatesEnabled bool

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.RealtimeURL = ""
	c.StatePath = defaultStatePath()
	c.CacheTTL = 300 * time.Second
	c.MaxRetries = 3
	c.RequestTimeout = 12 * time.Second
	c.StatusPollInterval = 30 * time.Second
	c.OnlineCheckInterval = 5 * time.Second
	c.SyncInterval = 0
	c.Connectivity = ConnectivityProbe
	c.StatusAddr = "127.0.0.1:8765"
	c.UpdatesEnabled = false
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Validate reports settings the client cannot run with.
func (c *Config) Validate() error {
	switch c.Connectivity {
	case ConnectivityWebsocket, ConnectivityProbe, ConnectivityOffline:
	default:
		return fmt.Errorf("connectivity %q: want %s, %s or %s", c.Connectivity,
			ConnectivityWebsocket, ConnectivityProbe, ConnectivityOffline)
	}
	if c.ServerURL == "" {
		return fmt.Errorf("server url is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	return nil
}

// WebsocketURL returns RealtimeURL, or the /ws endpoint of ServerURL when it
// is not set.
func (c *Config) WebsocketURL() string {
	if c.RealtimeURL != "" {
		return c.RealtimeURL
	}
	u := strings.TrimRight(c.ServerURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "timekeeper.db"
	}
	return filepath.Join(dir, "timekeeper", "state.db")
}
