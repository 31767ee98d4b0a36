package ssr

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// id file layout: 16 raw bytes, the device UUID.

const idFileName = "ssr.id"

func idPath(dir string) string { return filepath.Join(dir, idFileName) }

func saveDeviceID(path string, id uuid.UUID) error {
	return os.WriteFile(path, id[:], 0o644)
}

func loadDeviceID(path string) (uuid.UUID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.FromBytes(data)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse device id from %s: %w", path, err)
	}
	return id, nil
}

// getOrCreateDeviceID returns the UUID stored in dir, creating one on first use.
func getOrCreateDeviceID(dir string) (uuid.UUID, error) {
	path := idPath(dir)
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return uuid.Nil, fmt.Errorf("device id path %s is a directory, expected a file", path)
	}

	id, err := loadDeviceID(path)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return uuid.Nil, err
	}

	id = uuid.New()
	if err := saveDeviceID(path, id); err != nil {
		return uuid.Nil, fmt.Errorf("write device id %s: %w", path, err)
	}
	return id, nil
}

// ID returns the device UUID. It is stable across restarts when
// Options.StateDir is set.
func (d *LogicalDevice) ID() uuid.UUID { return d.id }
