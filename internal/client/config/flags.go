package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Flag names shared by every command.
const (
	FlagConfig       = "config"
	FlagServer       = "server"
	FlagState        = "state"
	FlagOffline      = "offline"
	FlagConnectivity = "connectivity"
	FlagLogLevel     = "log-level"
	FlagUpdates      = "enable-updates"
)

// RegisterFlags adds the configuration flags to fs. Their defaults are
// empty; LoadConfig only looks at flags the user changed.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "path to a JSON or TOML config file")
	fs.String(FlagServer, "", "base URL of the timesheet server")
	fs.String(FlagState, "", "path to the local state database")
	fs.Bool(FlagOffline, false, "never contact the server; queue every change")
	fs.String(FlagConnectivity, "", "connectivity source: websocket, probe or offline")
	fs.String(FlagLogLevel, "", "log level: debug, info, warn or error")
	fs.Bool(FlagUpdates, false, "allow timesheet edits (server must serve PUT /timesheets/{id})")
}

// parseFlags overlays cfg with the flags set on the command line.
func parseFlags(cfg *Config, fs *pflag.FlagSet) error {
	strs := map[string]*string{
		FlagServer:       &cfg.ServerURL,
		FlagState:        &cfg.StatePath,
		FlagConnectivity: &cfg.Connectivity,
		FlagLogLevel:     &cfg.LogLevel,
	}
	for name, dst := range strs {
		if !changed(fs, name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
		*dst = v
	}

	if changed(fs, FlagOffline) {
		offline, err := fs.GetBool(FlagOffline)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", FlagOffline, err)
		}
		if offline {
			cfg.Connectivity = ConnectivityOffline
		}
	}

	if changed(fs, FlagUpdates) {
		v, err := fs.GetBool(FlagUpdates)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", FlagUpdates, err)
		}
		cfg.UpdatesEnabled = v
	}
	return nil
}

func changed(fs *pflag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	return f != nil && f.Changed
}
