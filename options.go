package ssr

import "log"

// Options menyediakan opsi konfigurasi untuk LogicalDevice.
//
//   - SectorSize, Capacity, DataRegionSize: geometri layout (lihat Geometry)
//   - Workers, QueueSize: jumlah worker dan kapasitas antrian request
//   - UseMmap:        akses mirror lewat memory-mapping (hanya FileOpener)
//   - Create, Format: buat file mirror bila belum ada / inisialisasi checksum
//   - SyncWrites:     fsync setiap penulisan sektor
//   - BufferPoolSize: aktifkan pool buffer sektor (0 = nonaktif)
//   - StateDir:       direktori untuk file config dan ID device (kosong = tidak disimpan)
//
// Opener, Dispatcher, Journal dan Logger boleh nil; nilai bawaan akan dipakai.
type Options struct {
	SectorSize     int   // ukuran sektor dalam byte, kelipatan 4
	Capacity       int64 // jumlah sektor logis
	DataRegionSize int64 // ukuran region data per mirror dalam byte

	Workers   int // jumlah goroutine worker (default 1)
	QueueSize int // kapasitas antrian, penuh = ErrQueueFull

	UseMmap        bool
	Create         bool
	Format         bool
	SyncWrites     bool
	BufferPoolSize int
	LockStripes    int // jumlah mutex shard

	StateDir string

	Opener     Opener
	Dispatcher Dispatcher
	Journal    Journal
	Logger     *log.Logger
}

const (
	defaultSectorSize     = 512
	defaultDataRegionSize = 95 * 1024 * 1024
)

// DefaultOptions mengembalikan konfigurasi default: 95 MiB data per mirror
// dengan sektor 512 byte dan satu worker.
func DefaultOptions() Options {
	return Options{
		SectorSize:     defaultSectorSize,
		Capacity:       defaultDataRegionSize / defaultSectorSize,
		DataRegionSize: defaultDataRegionSize,
		Workers:        1,
		QueueSize:      128,
		BufferPoolSize: 64,
		LockStripes:    256,
	}
}

// Geometry mengembalikan geometri yang dijelaskan oleh opsi.
func (o Options) Geometry() Geometry {
	return Geometry{
		SectorSize:     o.SectorSize,
		Capacity:       o.Capacity,
		DataRegionSize: o.DataRegionSize,
	}
}
