// Package mdlogconfig loads the on-disk YAML configuration for a journal
// instance, grounded on cmd/mcp's LoadConfig: a default config is written
// out the first time a path doesn't exist, so the file doubles as
// documentation of every tunable once a deployment touches it.
package mdlogconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandfs/mdlog/internal/mdlog"
)

// Config is the full on-disk shape: mdlog's own tunables (section 6),
// plus placement hints and the trimmer's periodic driver interval.
type Config struct {
	Enabled     bool `yaml:"enabled"`
	MaxEvents   int  `yaml:"max_events"`
	MaxSegments int  `yaml:"max_segments"`
	MaxTrimming int  `yaml:"max_trimming"`
	Debug       bool `yaml:"debug"`

	// StripePeriod is the streamer's object-stripe size: the unit the
	// segment-boundary policy checks write position against.
	StripePeriod int64 `yaml:"stripe_period"`

	// TrimIntervalSeconds is how often cmd/mdlogd's driver calls
	// Log.Flush (which runs the trimmer). The driver jitters this
	// interval so concurrent ranks don't trim in lockstep.
	TrimIntervalSeconds int `yaml:"trim_interval_seconds"`

	// PreferredPlacement mirrors log_inode.layout.preferred: a
	// placement hint passed to the streamer constructor. filestreamer,
	// a single local file, has nothing to honor it with; it is carried
	// here purely so a future distributed streamer has somewhere to
	// read it from.
	PreferredPlacement string `yaml:"preferred_placement"`
}

// ToMDLogConfig projects the journal-relevant fields into mdlog.Config.
func (c Config) ToMDLogConfig() mdlog.Config {
	return mdlog.Config{
		Enabled:     c.Enabled,
		MaxEvents:   c.MaxEvents,
		MaxSegments: c.MaxSegments,
		MaxTrimming: c.MaxTrimming,
		Debug:       c.Debug,
	}
}

// TrimInterval is TrimIntervalSeconds as a time.Duration.
func (c Config) TrimInterval() time.Duration {
	return time.Duration(c.TrimIntervalSeconds) * time.Second
}

func defaultConfig() *Config {
	return &Config{
		Enabled:             true,
		MaxEvents:           -1,
		MaxSegments:         -1,
		MaxTrimming:         5,
		Debug:               false,
		StripePeriod:        4 << 20, // 4MiB, matching a typical RADOS stripe
		TrimIntervalSeconds: 5,
		PreferredPlacement:  "",
	}
}

// LoadConfig reads path, writing out a default config if it doesn't
// exist yet.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := defaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
