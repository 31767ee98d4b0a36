package ssr

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned for sectors outside the logical capacity.
	// Such requests are rejected before they reach a mirror.
	ErrOutOfRange = errors.New("sector out of range")

	// ErrUnaligned is returned for buffers that are not a whole number of sectors.
	ErrUnaligned = errors.New("buffer is not a multiple of the sector size")

	// ErrIO matches every *IOError.
	ErrIO = errors.New("device i/o error")

	ErrQueueFull = errors.New("request queue full")
	ErrClosed    = errors.New("device closed")

	// ErrNotFound is returned by an Opener when a name resolves to nothing.
	ErrNotFound = errors.New("device not found")

	// ErrBusy is returned by FileOpener when another process holds the device.
	ErrBusy = errors.New("device busy")

	// errChecksumMismatch marks a mirror whose data was read fine but does not
	// match its stored checksum. It only ever appears as a cause inside
	// SectorUnrecoverableError.
	errChecksumMismatch = errors.New("checksum mismatch")
)

// MirrorID names one of the two mirrors.
type MirrorID int

const (
	Primary   MirrorID = 0
	Secondary MirrorID = 1
)

func (m MirrorID) String() string {
	switch m {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	}
	return fmt.Sprintf("mirror(%d)", int(m))
}

func (m MirrorID) other() MirrorID { return 1 - m }

// IOError reports that a backing device failed to service an operation.
type IOError struct {
	Mirror MirrorID
	Op     string // "read", "write" or "sync"
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s at offset %d: %v", e.Mirror, e.Op, e.Offset, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// MirrorWriteFailedError reports that one mirror did not persist a sector
// write. The other mirror may already hold the new data.
type MirrorWriteFailedError struct {
	Mirror MirrorID
	Sector int64
	Err    error
}

func (e *MirrorWriteFailedError) Error() string {
	return fmt.Sprintf("write sector %d: %s mirror failed: %v", e.Sector, e.Mirror, e.Err)
}

func (e *MirrorWriteFailedError) Unwrap() error { return e.Err }

// SectorUnrecoverableError reports that neither mirror holds a verified copy
// of a sector. Causes holds the per-mirror reason: a checksum mismatch or an
// *IOError.
type SectorUnrecoverableError struct {
	Sector int64
	Causes [2]error
}

func (e *SectorUnrecoverableError) Error() string {
	return fmt.Sprintf("sector %d unrecoverable: primary: %v; secondary: %v", e.Sector, e.Causes[Primary], e.Causes[Secondary])
}

func (e *SectorUnrecoverableError) Unwrap() []error {
	return []error{e.Causes[Primary], e.Causes[Secondary]}
}

// IsUnrecoverable reports whether err carries a SectorUnrecoverableError.
func IsUnrecoverable(err error) bool {
	var u *SectorUnrecoverableError
	return errors.As(err, &u)
}
