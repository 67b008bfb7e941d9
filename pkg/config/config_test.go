package config

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig("/tmp/store.db", 1024)

	if cfg.Path != "/tmp/store.db" {
		t.Errorf("expected path /tmp/store.db, got %s", cfg.Path)
	}
	if cfg.BlockSize != DefaultBlockSize {
		t.Errorf("expected block size %d, got %d", DefaultBlockSize, cfg.BlockSize)
	}
	if cfg.KeySize != 8 || cfg.ValueSize != 8 {
		t.Errorf("expected key/value size 8/8, got %d/%d", cfg.KeySize, cfg.ValueSize)
	}
	if cfg.NumBlocks != 1024 {
		t.Errorf("expected num blocks 1024, got %d", cfg.NumBlocks)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero key size", func(c *Config) { c.KeySize = 0 }},
		{"negative value size", func(c *Config) { c.ValueSize = -1 }},
		{"zero block size", func(c *Config) { c.BlockSize = 0 }},
		{"too few blocks", func(c *Config) { c.NumBlocks = 2 }},
		{"block too small for key+value", func(c *Config) {
			c.KeySize, c.ValueSize, c.BlockSize = 100, 100, 64
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig("/tmp/store.db", 1024)
			tc.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got: %v", err)
			}
		})
	}
}

func TestConfigSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := NewDefaultConfig(filepath.Join(dir, "store.db"), 4096)
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *cfg {
		t.Errorf("round trip mismatch: saved %+v, loaded %+v", cfg, got)
	}
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := NewDefaultConfig(filepath.Join(dir, "store.db"), 4096)
	cfg.KeySize = 0
	if err := cfg.Save(path); err == nil {
		t.Fatal("Save should reject an invalid config before writing")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error loading a nonexistent config file")
	}
}
