package ssr

import (
	"fmt"
	"sync/atomic"
)

// mirror membungkus satu device fisik (primary atau secondary).
//
// Semua transfer harus sejajar dengan ukuran sektor; pelanggaran adalah bug
// pemanggil sehingga langsung panic, bukan IOError. Kegagalan device selalu
// dikembalikan sebagai *IOError dan tidak pernah ditelan.
//
// Aman dipanggil dari banyak goroutine selama offset tidak tumpang tindih;
// lock per blok checksum di coordinator yang menjamin hal itu.
type mirror struct {
	id         MirrorID
	name       string      // nama yang diberikan ke Opener
	dev        BlockDevice // handle terbuka selama umur device logis
	sectorSize int64

	statReads    uint64
	statWrites   uint64
	statIOErrors uint64
}

func newMirror(id MirrorID, name string, dev BlockDevice, sectorSize int) *mirror {
	return &mirror{id: id, name: name, dev: dev, sectorSize: int64(sectorSize)}
}

func (m *mirror) checkAligned(op string, off int64, n int) {
	if n <= 0 || off < 0 || off%m.sectorSize != 0 || int64(n)%m.sectorSize != 0 {
		panic(fmt.Sprintf("ssr: unaligned %s on %s mirror: offset %d length %d (sector size %d)",
			op, m.id, off, n, m.sectorSize))
	}
}

// readInto fills dst from offset off.
func (m *mirror) readInto(off int64, dst []byte) error {
	m.checkAligned("read", off, len(dst))
	atomic.AddUint64(&m.statReads, 1)
	n, err := m.dev.ReadAt(dst, off)
	if err == nil && n != len(dst) {
		err = fmt.Errorf("short read: %d of %d bytes", n, len(dst))
	}
	if err != nil {
		atomic.AddUint64(&m.statIOErrors, 1)
		return &IOError{Mirror: m.id, Op: "read", Offset: off, Err: err}
	}
	return nil
}

func (m *mirror) write(off int64, p []byte) error {
	m.checkAligned("write", off, len(p))
	atomic.AddUint64(&m.statWrites, 1)
	n, err := m.dev.WriteAt(p, off)
	if err == nil && n != len(p) {
		err = fmt.Errorf("short write: %d of %d bytes", n, len(p))
	}
	if err != nil {
		atomic.AddUint64(&m.statIOErrors, 1)
		return &IOError{Mirror: m.id, Op: "write", Offset: off, Err: err}
	}
	return nil
}

func (m *mirror) sync() error {
	if err := m.dev.Sync(); err != nil {
		atomic.AddUint64(&m.statIOErrors, 1)
		return &IOError{Mirror: m.id, Op: "sync", Err: err}
	}
	return nil
}

func (m *mirror) stats() MirrorStats {
	return MirrorStats{
		Name:     m.name,
		Reads:    atomic.LoadUint64(&m.statReads),
		Writes:   atomic.LoadUint64(&m.statWrites),
		IOErrors: atomic.LoadUint64(&m.statIOErrors),
	}
}
