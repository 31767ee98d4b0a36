package ssr

import "fmt"

const formatChunk = 1 << 20

// Format zeroes the data region of dev and writes a matching checksum for
// every sector, so a fresh mirror verifies on first read. A zero-filled
// checksum region does not verify against zero data.
func Format(dev BlockDevice, g Geometry) error {
	if err := g.Validate(); err != nil {
		return err
	}
	m := newMirror(Primary, "format", dev, g.SectorSize)
	ss := int64(g.SectorSize)

	chunk := make([]byte, formatChunk/ss*ss)
	for off := int64(0); off < g.DataRegionSize; off += int64(len(chunk)) {
		n := int64(len(chunk))
		if rest := g.DataRegionSize - off; rest < n {
			n = rest
		}
		if err := m.write(off, chunk[:n]); err != nil {
			return fmt.Errorf("zero data region: %w", err)
		}
	}

	zeroSum := Checksum(make([]byte, ss))
	block := make([]byte, ss)
	for i := 0; i+ChecksumSize <= len(block); i += ChecksumSize {
		putChecksumAt(block, i, zeroSum)
	}
	end := g.DataRegionSize + g.ChecksumRegionSize()
	for off := g.DataRegionSize; off < end; off += ss {
		if err := m.write(off, block); err != nil {
			return fmt.Errorf("write checksum region: %w", err)
		}
	}
	return m.sync()
}
