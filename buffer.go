package ssr

import "sync"

// getBuf mengambil buffer seukuran sektor dari pool atau membuat baru jika
// pool dimatikan. Isi buffer tidak dijamin nol.
func (c *coordinator) getBuf() []byte {
	if c.bufPool != nil {
		return c.bufPool.Get().([]byte)
	}
	return make([]byte, c.geo.SectorSize)
}

// putBuf mengembalikan buffer ke pool. Hanya buffer dengan ukuran tepat yang
// dimasukkan kembali.
func (c *coordinator) putBuf(buf []byte) {
	if c.bufPool != nil && len(buf) == c.geo.SectorSize {
		c.bufPool.Put(buf)
	}
}

// lock mengembalikan RWMutex yang di-shard berdasarkan blok checksum sektor.
// Sektor yang berbagi blok checksum selalu mendapat mutex yang sama karena
// penulisan checksum adalah read-modify-write seluruh blok.
func (c *coordinator) lock(sector int64) *sync.RWMutex {
	return &c.locks[c.geo.lockKey(sector)%int64(len(c.locks))]
}
