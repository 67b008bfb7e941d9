// Package config holds the store's persisted configuration: the sizes fixed
// at creation time and the parameters needed to open the backing cache. It
// follows the shape of kevo's pkg/config.Config (JSON-tagged struct,
// sentinel errors, a Validate method, a constructor with sane defaults).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrInvalidConfig is returned by Validate for a structurally sound but
	// semantically bad configuration.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config is the bootstrap/creation-time record of a store's fixed sizes.
// After Attach, the superblock's copy of these fields is authoritative; this
// struct exists to create a new store and to sanity-check a remount.
type Config struct {
	// Path is the backing file for a disk-backed cache. Empty means an
	// in-memory cache is intended.
	Path string `json:"path"`

	KeySize   int `json:"key_size"`
	ValueSize int `json:"value_size"`
	BlockSize int `json:"block_size"`
	NumBlocks int `json:"num_blocks"`
}

// DefaultBlockSize matches the scenarios in spec.md's testable properties.
const DefaultBlockSize = 256

// NewDefaultConfig returns a Config with the sizes used throughout spec.md's
// concrete scenarios: 8-byte keys and values, 256-byte blocks.
func NewDefaultConfig(path string, numBlocks int) *Config {
	return &Config{
		Path:      path,
		KeySize:   8,
		ValueSize: 8,
		BlockSize: DefaultBlockSize,
		NumBlocks: numBlocks,
	}
}

// Validate checks the structural invariants a store needs before Attach:
// positive sizes, and enough room in a block for at least one interior slot
// and one leaf slot, per spec.md's node1max check.
func (c *Config) Validate() error {
	if c.KeySize <= 0 || c.ValueSize <= 0 || c.BlockSize <= 0 {
		return fmt.Errorf("%w: sizes must be positive", ErrInvalidConfig)
	}
	if c.NumBlocks < 3 {
		return fmt.Errorf("%w: need at least 3 blocks (superblock, root, one free)", ErrInvalidConfig)
	}
	const headerAndPtr = 36 + 8 // block.HeaderSize + block.PtrSize, restated to avoid an import cycle
	if headerAndPtr+c.KeySize+c.ValueSize > c.BlockSize {
		return fmt.Errorf("%w: block size %d too small for key=%d value=%d", ErrInvalidConfig, c.BlockSize, c.KeySize, c.ValueSize)
	}
	return nil
}

// Load reads a JSON-encoded Config from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes c as JSON to path.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
