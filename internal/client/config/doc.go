// Package config loads runtime configuration for the timekeeper client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file given with --config. Files ending in .toml are
//     decoded with go-toml, everything else as JSON.
//  3. Command-line flags registered with RegisterFlags, but only the ones the
//     user actually set.
//
// Durations use timex.Duration, so files can spell them as "30s" or as
// integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8000",
//	  "connectivity": "probe",
//	  "status_poll_interval": "30s"
//	}
//
// The package does not read environment variables.
package config
