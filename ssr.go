package ssr

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"
)

// LogicalDevice menyediakan satu device blok logis di atas dua mirror dengan
// checksum CRC-32 per sektor.
//
// Semua operasi aman untuk goroutine.
type LogicalDevice struct {
	id    uuid.UUID
	geo   Geometry
	names [2]string
	core  *coordinator

	dispatch Dispatcher
	ownPool  *WorkerPool // non-nil bila pool dibuat sendiri dan harus ditutup
	logger   *log.Logger

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

// Open membuka dua mirror bernama primary dan secondary lewat opts.Opener
// (default FileOpener) dan membangun device logis di atasnya.
func Open(primary, secondary string, opts Options) (*LogicalDevice, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "ssr: ", log.LstdFlags)
	}
	if opts.StateDir != "" {
		if err := os.MkdirAll(opts.StateDir, 0o755); err != nil {
			return nil, fmt.Errorf("gagal membuat direktori state: %w", err)
		}
		if err := verifyOrWriteConfig(configPath(opts.StateDir), &opts); err != nil {
			return nil, err
		}
	}
	geo := opts.Geometry()
	if err := geo.Validate(); err != nil {
		return nil, err
	}

	opener := opts.Opener
	if opener == nil {
		opener = FileOpener{Size: geo.MirrorSize(), Create: opts.Create, UseMmap: opts.UseMmap}
	}

	a, err := opener.Open(primary)
	if err != nil {
		return nil, fmt.Errorf("gagal membuka mirror primary: %w", err)
	}
	b, err := opener.Open(secondary)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("gagal membuka mirror secondary: %w", err)
	}

	d, err := newLogicalDevice([2]string{primary, secondary}, [2]BlockDevice{a, b}, opts)
	if err != nil {
		a.Close()
		b.Close()
		return nil, err
	}
	return d, nil
}

// New membangun device logis dari dua handle yang sudah terbuka. Handle
// menjadi milik device dan ditutup oleh Close.
func New(primary, secondary BlockDevice, opts Options) (*LogicalDevice, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "ssr: ", log.LstdFlags)
	}
	if err := opts.Geometry().Validate(); err != nil {
		return nil, err
	}
	return newLogicalDevice([2]string{"primary", "secondary"}, [2]BlockDevice{primary, secondary}, opts)
}

func newLogicalDevice(names [2]string, devs [2]BlockDevice, opts Options) (*LogicalDevice, error) {
	geo := opts.Geometry()

	if opts.Format {
		for i, dev := range devs {
			if err := Format(dev, geo); err != nil {
				return nil, fmt.Errorf("gagal memformat mirror %s: %w", MirrorID(i), err)
			}
		}
	}

	id := uuid.New()
	if opts.StateDir != "" {
		var err error
		if id, err = getOrCreateDeviceID(opts.StateDir); err != nil {
			return nil, err
		}
	}

	var pool *sync.Pool
	if opts.BufferPoolSize > 0 {
		pool = &sync.Pool{New: func() any { return make([]byte, geo.SectorSize) }}
	}
	nLocks := opts.LockStripes
	if nLocks <= 0 {
		nLocks = 256
	}
	journal := opts.Journal
	if journal == nil {
		journal = nopJournal{}
	}

	core := &coordinator{
		geo:        geo,
		locks:      make([]sync.RWMutex, nLocks),
		bufPool:    pool,
		journal:    journal,
		logger:     opts.Logger,
		syncWrites: opts.SyncWrites,
	}
	for i, dev := range devs {
		core.mirrors[i] = newMirror(MirrorID(i), names[i], dev, geo.SectorSize)
	}

	d := &LogicalDevice{
		id:     id,
		geo:    geo,
		names:  names,
		core:   core,
		logger: opts.Logger,
	}
	if opts.Dispatcher != nil {
		d.dispatch = opts.Dispatcher
	} else {
		d.ownPool = NewWorkerPool(opts.Workers, opts.QueueSize)
		d.dispatch = d.ownPool
	}
	return d, nil
}

// Submit validasi request lalu menyerahkannya ke dispatcher tanpa blocking.
// Error validasi dan antrian dikembalikan langsung; selain itu req.Done
// dipanggil tepat sekali setelah request selesai.
func (d *LogicalDevice) Submit(req *Request) error {
	ss := d.geo.SectorSize
	if len(req.Buf) == 0 || len(req.Buf)%ss != 0 {
		return fmt.Errorf("%s of %d bytes: %w", req.Op, len(req.Buf), ErrUnaligned)
	}
	if req.Op != OpRead && req.Op != OpWrite {
		return fmt.Errorf("unknown op %d", int(req.Op))
	}
	if err := d.geo.CheckRange(req.Sector, int64(len(req.Buf)/ss)); err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	d.inflight.Add(1)
	err := d.dispatch.Submit(func() {
		defer d.inflight.Done()
		d.run(req)
	})
	if err != nil {
		d.inflight.Done()
		return err
	}
	return nil
}

// run memecah request menjadi operasi per sektor dan berhenti pada error
// pertama.
func (d *LogicalDevice) run(req *Request) {
	ss := d.geo.SectorSize
	n := len(req.Buf) / ss

	var err error
	for i := 0; i < n && err == nil; i++ {
		sector := req.Sector + int64(i)
		chunk := req.Buf[i*ss : (i+1)*ss]
		switch req.Op {
		case OpRead:
			_, err = d.core.readSector(sector, chunk)
		case OpWrite:
			err = d.core.writeSector(sector, chunk)
		}
	}
	if req.Done != nil {
		req.Done(err)
	}
}

// ReadSectors membaca len(buf)/SectorSize sektor mulai dari sector dan
// menunggu hingga selesai.
func (d *LogicalDevice) ReadSectors(sector int64, buf []byte) error {
	return d.do(OpRead, sector, buf)
}

// WriteSectors menulis buf ke kedua mirror mulai dari sector dan menunggu
// hingga selesai.
func (d *LogicalDevice) WriteSectors(sector int64, buf []byte) error {
	return d.do(OpWrite, sector, buf)
}

// ReadSector mengembalikan salinan satu sektor.
func (d *LogicalDevice) ReadSector(sector int64) ([]byte, error) {
	out := make([]byte, d.geo.SectorSize)
	if err := d.ReadSectors(sector, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *LogicalDevice) do(op Op, sector int64, buf []byte) error {
	done := make(chan error, 1)
	req := &Request{Op: op, Sector: sector, Buf: buf, Done: func(err error) { done <- err }}
	if err := d.Submit(req); err != nil {
		return err
	}
	return <-done
}

// MirrorNames mengembalikan nama mirror primary dan secondary.
func (d *LogicalDevice) MirrorNames() [2]string { return d.names }
