package ssr

import "fmt"

// ChecksumSize is the on-disk size of one sector checksum entry.
const ChecksumSize = 4

// Geometry describes the fixed layout shared by both mirrors.
//
// Each mirror holds the data region at [0, DataRegionSize) followed by the
// checksum region: one little-endian CRC-32 per logical sector, in sector
// order. Both mirrors use the identical mapping so that either one can serve
// as the repair source for the other.
type Geometry struct {
	SectorSize     int   `json:"sector_size"`      // bytes per sector
	Capacity       int64 `json:"capacity"`         // logical sectors
	DataRegionSize int64 `json:"data_region_size"` // bytes, start of the checksum region
}

// Location is where one logical sector lives on a mirror.
type Location struct {
	Sector         int64
	DataOffset     int64 // byte offset of the sector payload
	ChecksumOffset int64 // byte offset of the 4-byte checksum entry

	// The mirror store only does sector-aligned I/O, so the checksum entry is
	// reached through the sector-sized block that contains it.
	ChecksumBlockOffset int64
	ChecksumIndex       int // byte index of the entry inside that block
}

// Validate checks the invariants of the layout.
func (g Geometry) Validate() error {
	if g.SectorSize <= 0 || g.SectorSize%ChecksumSize != 0 {
		return fmt.Errorf("sector size must be a positive multiple of %d: %d", ChecksumSize, g.SectorSize)
	}
	if g.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive: %d", g.Capacity)
	}
	if g.DataRegionSize%int64(g.SectorSize) != 0 {
		return fmt.Errorf("data region size %d is not a multiple of sector size %d", g.DataRegionSize, g.SectorSize)
	}
	if g.Capacity*int64(g.SectorSize) > g.DataRegionSize {
		return fmt.Errorf("capacity %d sectors does not fit in data region of %d bytes", g.Capacity, g.DataRegionSize)
	}
	return nil
}

// ChecksumsPerBlock returns how many checksum entries share one sector.
func (g Geometry) ChecksumsPerBlock() int64 {
	return int64(g.SectorSize / ChecksumSize)
}

// ChecksumRegionSize returns the checksum region size rounded up to a whole
// number of sectors.
func (g Geometry) ChecksumRegionSize() int64 {
	raw := g.Capacity * ChecksumSize
	ss := int64(g.SectorSize)
	return (raw + ss - 1) / ss * ss
}

// MirrorSize is the minimum size of a backing device for this geometry.
func (g Geometry) MirrorSize() int64 {
	return g.DataRegionSize + g.ChecksumRegionSize()
}

// DataOffset returns the data region offset of sector s. It does not check
// bounds; use Locate for untrusted input.
func (g Geometry) DataOffset(s int64) int64 {
	return s * int64(g.SectorSize)
}

// ChecksumOffset returns the checksum region offset of sector s.
func (g Geometry) ChecksumOffset(s int64) int64 {
	return g.DataRegionSize + s*ChecksumSize
}

// lockKey maps a sector to the checksum block it shares with its neighbours.
func (g Geometry) lockKey(s int64) int64 {
	return s / g.ChecksumsPerBlock()
}

// Locate translates logical sector s into its mirror offsets.
func (g Geometry) Locate(s int64) (Location, error) {
	if s < 0 || s >= g.Capacity {
		return Location{}, fmt.Errorf("sector %d (capacity %d): %w", s, g.Capacity, ErrOutOfRange)
	}
	csum := g.ChecksumOffset(s)
	ss := int64(g.SectorSize)
	block := g.DataRegionSize + (csum-g.DataRegionSize)/ss*ss
	return Location{
		Sector:              s,
		DataOffset:          g.DataOffset(s),
		ChecksumOffset:      csum,
		ChecksumBlockOffset: block,
		ChecksumIndex:       int(csum - block),
	}, nil
}

// CheckRange validates a request of count sectors starting at s.
func (g Geometry) CheckRange(s, count int64) error {
	if s < 0 || count <= 0 || s > g.Capacity-count {
		return fmt.Errorf("sectors [%d, %d) (capacity %d): %w", s, s+count, g.Capacity, ErrOutOfRange)
	}
	return nil
}
