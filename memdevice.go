package ssr

import (
	"fmt"
	"io"
	"sync"
)

// MemDevice is a BlockDevice backed by a byte slice. Faults can be injected
// with SetFault to simulate a failing disk.
type MemDevice struct {
	mu     sync.RWMutex
	data   []byte
	fault  func(op string, off int64) error
	closed bool
}

// NewMemDevice returns a zero-filled device of size bytes.
func NewMemDevice(size int64) *MemDevice {
	return &MemDevice{data: make([]byte, size)}
}

// SetFault installs f; a non-nil return from f fails the matching operation
// ("read", "write" or "sync"). Pass nil to clear it.
func (d *MemDevice) SetFault(f func(op string, off int64) error) {
	d.mu.Lock()
	d.fault = f
	d.mu.Unlock()
}

func (d *MemDevice) ReadAt(p []byte, off int64) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return 0, ErrClosed
	}
	if d.fault != nil {
		if err := d.fault("read", off); err != nil {
			return 0, err
		}
	}
	if off < 0 || off+int64(len(p)) > int64(len(d.data)) {
		return 0, io.ErrUnexpectedEOF
	}
	return copy(p, d.data[off:]), nil
}

func (d *MemDevice) WriteAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	if d.fault != nil {
		if err := d.fault("write", off); err != nil {
			return 0, err
		}
	}
	if off < 0 || off+int64(len(p)) > int64(len(d.data)) {
		return 0, io.ErrShortWrite
	}
	return copy(d.data[off:], p), nil
}

func (d *MemDevice) Sync() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.fault != nil {
		return d.fault("sync", 0)
	}
	return nil
}

func (d *MemDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// Closed reports whether Close has been called.
func (d *MemDevice) Closed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

// Bytes returns a copy of the device contents.
func (d *MemDevice) Bytes() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]byte, len(d.data))
	copy(out, d.data)
	return out
}

// Poke overwrites raw bytes without fault injection, for corrupting a device
// in tests and tools.
func (d *MemDevice) Poke(off int64, p []byte) {
	d.mu.Lock()
	copy(d.data[off:], p)
	d.mu.Unlock()
}

// MemOpener hands out MemDevices by name.
type MemOpener map[string]*MemDevice

func (o MemOpener) Open(name string) (BlockDevice, error) {
	d, ok := o[name]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", name, ErrNotFound)
	}
	d.mu.Lock()
	d.closed = false
	d.mu.Unlock()
	return d, nil
}
