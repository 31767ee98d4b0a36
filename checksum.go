package ssr

import (
	"encoding/binary"
	"hash/crc32"
)

// Checksum returns the CRC-32 (IEEE, seed 0) of a sector payload.
func Checksum(buf []byte) uint32 {
	return crc32.Update(0, crc32.IEEETable, buf)
}

// VerifyChecksum reports whether buf still matches sum.
func VerifyChecksum(buf []byte, sum uint32) bool {
	return Checksum(buf) == sum
}

// checksumAt decodes the entry at idx inside a checksum block.
func checksumAt(block []byte, idx int) uint32 {
	return binary.LittleEndian.Uint32(block[idx : idx+ChecksumSize])
}

func putChecksumAt(block []byte, idx int, sum uint32) {
	binary.LittleEndian.PutUint32(block[idx:idx+ChecksumSize], sum)
}
