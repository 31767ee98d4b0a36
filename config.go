package ssr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const configFileName = "ssr.config"

// persistedConfig captures the subset of Options that affects the on-disk layout.
type persistedConfig struct {
	SectorSize     int   `json:"sector_size"`
	Capacity       int64 `json:"capacity"`
	DataRegionSize int64 `json:"data_region_size"`
}

func newPersistedConfig(opts Options) persistedConfig {
	return persistedConfig{
		SectorSize:     opts.SectorSize,
		Capacity:       opts.Capacity,
		DataRegionSize: opts.DataRegionSize,
	}
}

func configPath(dir string) string { return filepath.Join(dir, configFileName) }

// verifyOrWriteConfig loads an existing config file if present and makes the
// supplied options follow it, so a mirror pair is always reopened with the
// geometry it was formatted with. If the file does not exist, it is created.
func verifyOrWriteConfig(path string, opts *Options) error {
	want := newPersistedConfig(*opts)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// first time: write file
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create config file: %w", err)
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(want); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()
	var have persistedConfig
	if err := json.NewDecoder(f).Decode(&have); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	if have != want && opts.Logger != nil {
		opts.Logger.Printf("geometry from %s overrides options: have %+v, asked %+v", path, have, want)
	}
	opts.SectorSize = have.SectorSize
	opts.Capacity = have.Capacity
	opts.DataRegionSize = have.DataRegionSize
	return nil
}
