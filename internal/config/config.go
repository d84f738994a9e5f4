// Package config loads the CLI configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Interface string     `yaml:"interface"`
	Channel   string     `yaml:"channel"`
	Bitrate   int        `yaml:"bitrate"`
	HostID    uint16     `yaml:"host_id"`
	Backend   string     `yaml:"backend"`
	Simulate  bool       `yaml:"simulate"`
	Scan      ScanConfig `yaml:"scan"`
}

type ScanConfig struct {
	Min   int  `yaml:"min"`
	Max   int  `yaml:"max"`
	Quick bool `yaml:"quick"`
}

// Default matches the original deployment.
func Default() *Config {
	return &Config{
		Interface: "socketcan",
		Channel:   "can0",
		Bitrate:   1_000_000,
		HostID:    0x00AA,
		Backend:   "raw",
		Scan:      ScanConfig{Min: 0, Max: 127, Quick: true},
	}
}

// Load reads and validates a YAML config file. Unset fields keep their
// defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Interface == "" {
		return fmt.Errorf("interface must not be empty")
	}
	if c.Channel == "" {
		return fmt.Errorf("channel must not be empty")
	}
	if c.Bitrate <= 0 {
		return fmt.Errorf("bitrate %d out of range", c.Bitrate)
	}
	switch c.Backend {
	case "", "vendor", "generic", "canopen", "raw":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Scan.Min < 0 || c.Scan.Min > 127 {
		return fmt.Errorf("scan.min %d out of range 0..127", c.Scan.Min)
	}
	if c.Scan.Max < 0 || c.Scan.Max > 127 {
		return fmt.Errorf("scan.max %d out of range 0..127", c.Scan.Max)
	}
	if c.Scan.Min > c.Scan.Max {
		return fmt.Errorf("scan.min %d above scan.max %d", c.Scan.Min, c.Scan.Max)
	}
	return nil
}
