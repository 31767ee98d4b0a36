package ssr

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// BlockDevice is an opened backing store. Callers only issue sector-aligned
// transfers; a short transfer must be reported as an error.
type BlockDevice interface {
	io.ReaderAt
	io.WriterAt
	Sync() error
	Close() error
}

// Opener resolves a device name to an opened BlockDevice. It returns an error
// matching ErrNotFound when the name does not exist.
type Opener interface {
	Open(name string) (BlockDevice, error)
}

// FileOpener opens regular files or block device nodes by path.
//
// The device is locked with flock(LOCK_EX) for as long as it is open, so two
// arrays can never drive the same mirror.
type FileOpener struct {
	Size    int64 // minimum size in bytes; 0 skips the check
	Create  bool  // create missing files and grow short regular files to Size
	UseMmap bool  // serve I/O through a shared memory mapping
}

// fileDevice is the BlockDevice returned by FileOpener.
type fileDevice struct {
	file *os.File
	mmap []byte // nil unless UseMmap
	path string
	size int64

	closeOnce sync.Once
	closeErr  error
}

func (o FileOpener) Open(name string) (BlockDevice, error) {
	flags := os.O_RDWR
	if o.Create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(name, flags, 0o666)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("lock %s: %w", name, ErrBusy)
		}
		return nil, fmt.Errorf("lock %s: %w", name, err)
	}

	// Seek works for block device nodes where Stat reports size 0.
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("size %s: %w", name, err)
	}
	if size < o.Size {
		info, err := f.Stat()
		if err != nil || !o.Create || !info.Mode().IsRegular() {
			f.Close()
			return nil, fmt.Errorf("%s is %d bytes, need at least %d", name, size, o.Size)
		}
		if err := f.Truncate(o.Size); err != nil {
			f.Close()
			return nil, fmt.Errorf("grow %s: %w", name, err)
		}
		size = o.Size
	}

	d := &fileDevice{file: f, path: name, size: size}
	if o.UseMmap {
		m, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("mmap %s: %w", name, err)
		}
		d.mmap = m
	}
	return d, nil
}

func (d *fileDevice) ReadAt(p []byte, off int64) (int, error) {
	if d.mmap == nil {
		return d.file.ReadAt(p, off)
	}
	if off < 0 || off+int64(len(p)) > int64(len(d.mmap)) {
		return 0, io.ErrUnexpectedEOF
	}
	return copy(p, d.mmap[off:]), nil
}

func (d *fileDevice) WriteAt(p []byte, off int64) (int, error) {
	if d.mmap == nil {
		return d.file.WriteAt(p, off)
	}
	if off < 0 || off+int64(len(p)) > int64(len(d.mmap)) {
		return 0, io.ErrShortWrite
	}
	return copy(d.mmap[off:], p), nil
}

func (d *fileDevice) Sync() error {
	if d.mmap != nil {
		return unix.Msync(d.mmap, unix.MS_SYNC)
	}
	return unix.Fdatasync(int(d.file.Fd()))
}

func (d *fileDevice) Close() error {
	d.closeOnce.Do(func() {
		if d.mmap != nil {
			if err := unix.Munmap(d.mmap); err != nil {
				d.closeErr = fmt.Errorf("unmap %s: %w", d.path, err)
			}
			d.mmap = nil
		}
		// closing the descriptor also drops the flock
		if err := d.file.Close(); err != nil && d.closeErr == nil {
			d.closeErr = fmt.Errorf("close %s: %w", d.path, err)
		}
	})
	return d.closeErr
}
