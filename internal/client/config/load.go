package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// LoadConfig builds a Config from defaults, then the file named by the
// --config flag, then the remaining flags. fs may be nil.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if fs != nil && changed(fs, FlagConfig) {
		path, err := fs.GetString(FlagConfig)
		if err != nil {
			return nil, fmt.Errorf("flag --%s: %w", FlagConfig, err)
		}
		if err := parseFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if fs != nil {
		if err := parseFlags(cfg, fs); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
