package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateDefaults(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty interface", func(c *Config) { c.Interface = "" }},
		{"empty channel", func(c *Config) { c.Channel = "" }},
		{"zero bitrate", func(c *Config) { c.Bitrate = 0 }},
		{"unknown backend", func(c *Config) { c.Backend = "modbus" }},
		{"scan min too high", func(c *Config) { c.Scan.Min = 128 }},
		{"scan max too high", func(c *Config) { c.Scan.Max = 200 }},
		{"scan min above max", func(c *Config) { c.Scan.Min = 50; c.Scan.Max = 10 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted invalid config")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robstride.yaml")
	data := []byte("interface: slcan\nchannel: /dev/ttyACM0\nbitrate: 500000\nscan:\n  min: 10\n  max: 20\n  quick: false\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Interface != "slcan" || cfg.Channel != "/dev/ttyACM0" || cfg.Bitrate != 500000 {
		t.Errorf("bus settings = %+v", cfg)
	}
	if cfg.Scan.Min != 10 || cfg.Scan.Max != 20 || cfg.Scan.Quick {
		t.Errorf("scan settings = %+v", cfg.Scan)
	}
	// Unset fields keep defaults.
	if cfg.HostID != 0x00AA || cfg.Backend != "raw" {
		t.Errorf("defaults not preserved: host 0x%04X backend %q", cfg.HostID, cfg.Backend)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robstride.yaml")
	if err := os.WriteFile(path, []byte("bitrate: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() accepted invalid config")
	}
}
