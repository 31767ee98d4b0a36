package ssr

import "sync/atomic"

// Stats menyimpan statistik integritas device logis. Semua hitungan per sektor.
type Stats struct {
	Reads              uint64 // sektor yang dibaca
	Writes             uint64 // sektor yang ditulis
	ChecksumMismatches uint64 // salinan mirror yang gagal verifikasi checksum
	Repairs            uint64 // perbaikan sukses
	RepairFailures     uint64 // perbaikan yang gagal ditulis
	RepairsSkipped     uint64 // perbaikan dilewati karena mirror tujuan tidak terbaca
	Unrecoverable      uint64 // sektor tanpa salinan valid
	WriteFailures      uint64 // MirrorWriteFailed
	Divergent          uint64 // kedua mirror valid tetapi isinya berbeda
	Mirrors            [2]MirrorStats
}

// MirrorStats adalah statistik I/O satu mirror.
type MirrorStats struct {
	Name     string
	Reads    uint64
	Writes   uint64
	IOErrors uint64
}

type counters struct {
	reads          uint64
	writes         uint64
	mismatches     uint64
	repairs        uint64
	repairFailures uint64
	repairsSkipped uint64
	unrecoverable  uint64
	writeFailures  uint64
	divergent      uint64
}

// GetStats mengambil snapshot statistik tanpa lock berat.
func (d *LogicalDevice) GetStats() Stats {
	c := &d.core.st
	s := Stats{
		Reads:              atomic.LoadUint64(&c.reads),
		Writes:             atomic.LoadUint64(&c.writes),
		ChecksumMismatches: atomic.LoadUint64(&c.mismatches),
		Repairs:            atomic.LoadUint64(&c.repairs),
		RepairFailures:     atomic.LoadUint64(&c.repairFailures),
		RepairsSkipped:     atomic.LoadUint64(&c.repairsSkipped),
		Unrecoverable:      atomic.LoadUint64(&c.unrecoverable),
		WriteFailures:      atomic.LoadUint64(&c.writeFailures),
		Divergent:          atomic.LoadUint64(&c.divergent),
	}
	for i, m := range d.core.mirrors {
		s.Mirrors[i] = m.stats()
	}
	return s
}

// ResetStats mengatur ulang penghitung integritas. Statistik I/O per mirror
// tidak ikut direset.
func (d *LogicalDevice) ResetStats() {
	c := &d.core.st
	for _, p := range []*uint64{
		&c.reads, &c.writes, &c.mismatches, &c.repairs, &c.repairFailures,
		&c.repairsSkipped, &c.unrecoverable, &c.writeFailures, &c.divergent,
	} {
		atomic.StoreUint64(p, 0)
	}
}

// Geometry mengembalikan layout device.
func (d *LogicalDevice) Geometry() Geometry { return d.geo }

// Capacity mengembalikan jumlah sektor logis.
func (d *LogicalDevice) Capacity() int64 { return d.geo.Capacity }

// SectorSize mengembalikan ukuran sektor dalam byte.
func (d *LogicalDevice) SectorSize() int { return d.geo.SectorSize }
