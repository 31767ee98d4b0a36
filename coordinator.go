package ssr

import (
	"bytes"
	"log"
	"sync"
	"sync/atomic"
)

// coordinator runs the per-sector mirroring, verification and repair
// protocol against the two mirrors. It holds no state about mirror health:
// every decision is made from what is on disk at that moment.
type coordinator struct {
	geo        Geometry
	mirrors    [2]*mirror
	locks      []sync.RWMutex
	bufPool    *sync.Pool
	journal    Journal
	logger     *log.Logger
	syncWrites bool

	st counters
}

// readOutcome tells the caller what a verified read had to do.
type readOutcome int

const (
	readClean    readOutcome = iota // served without writing anything
	readRepaired                    // bad mirror rewritten
	readDegraded                    // served, but the bad mirror could not be rewritten
)

// sectorCopy is one mirror's view of a sector.
type sectorCopy struct {
	data       []byte
	block      []byte // checksum block holding the sector's entry
	err        error  // nil when the copy verified
	unreadable bool   // err is an *IOError from the read itself
}

func (c *coordinator) load(m *mirror, loc Location) sectorCopy {
	cp := sectorCopy{data: c.getBuf(), block: c.getBuf()}
	if err := m.readInto(loc.DataOffset, cp.data); err != nil {
		cp.err, cp.unreadable = err, true
		return cp
	}
	if err := m.readInto(loc.ChecksumBlockOffset, cp.block); err != nil {
		cp.err, cp.unreadable = err, true
		return cp
	}
	if !VerifyChecksum(cp.data, checksumAt(cp.block, loc.ChecksumIndex)) {
		cp.err = errChecksumMismatch
	}
	return cp
}

func (c *coordinator) loadBoth(loc Location) [2]sectorCopy {
	return [2]sectorCopy{
		c.load(c.mirrors[Primary], loc),
		c.load(c.mirrors[Secondary], loc),
	}
}

func (c *coordinator) release(cps [2]sectorCopy) {
	for _, cp := range cps {
		c.putBuf(cp.data)
		c.putBuf(cp.block)
	}
}

// needsRepair reports whether exactly one mirror failed verification.
func needsRepair(cps [2]sectorCopy) bool {
	return (cps[Primary].err == nil) != (cps[Secondary].err == nil)
}

// commit writes data and its checksum entry to m. block, when non-nil, is the
// mirror's current checksum block; it is patched in place instead of re-read.
// The caller holds the sector lock exclusively.
func (c *coordinator) commit(m *mirror, loc Location, data []byte, sum uint32, block []byte) error {
	if err := m.write(loc.DataOffset, data); err != nil {
		return err
	}
	if block == nil {
		block = c.getBuf()
		defer c.putBuf(block)
		if err := m.readInto(loc.ChecksumBlockOffset, block); err != nil {
			return err
		}
	}
	putChecksumAt(block, loc.ChecksumIndex, sum)
	if err := m.write(loc.ChecksumBlockOffset, block); err != nil {
		return err
	}
	if c.syncWrites {
		return m.sync()
	}
	return nil
}

// writeSector stores buf on both mirrors. Both mirrors are always attempted;
// the first failure is reported as *MirrorWriteFailedError.
func (c *coordinator) writeSector(sector int64, buf []byte) error {
	loc, err := c.geo.Locate(sector)
	if err != nil {
		return err
	}
	sum := Checksum(buf)

	mu := c.lock(sector)
	mu.Lock()
	defer mu.Unlock()

	atomic.AddUint64(&c.st.writes, 1)
	var first error
	for _, m := range c.mirrors {
		if err := c.commit(m, loc, buf, sum, nil); err != nil {
			atomic.AddUint64(&c.st.writeFailures, 1)
			c.logger.Printf("write sector %d to %s mirror failed. Why: %v", sector, m.id, err)
			c.record(newEvent(EventWriteFailed, sector, m.id, err))
			if first == nil {
				first = &MirrorWriteFailedError{Mirror: m.id, Sector: sector, Err: err}
			}
		}
	}
	return first
}

// readSector copies a verified copy of sector into dst, repairing the other
// mirror when only one copy verifies.
//
// Healthy sectors are read under the shared lock. When a repair is needed the
// lock is retaken exclusively and both mirrors are read again, since another
// writer may have run in between.
func (c *coordinator) readSector(sector int64, dst []byte) (readOutcome, error) {
	loc, err := c.geo.Locate(sector)
	if err != nil {
		return readClean, err
	}
	atomic.AddUint64(&c.st.reads, 1)

	mu := c.lock(sector)
	mu.RLock()
	cps := c.loadBoth(loc)
	if !needsRepair(cps) {
		out, err := c.resolve(loc, cps, dst)
		c.release(cps)
		mu.RUnlock()
		return out, err
	}
	c.release(cps)
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	cps = c.loadBoth(loc)
	defer c.release(cps)
	return c.resolve(loc, cps, dst)
}

// resolve applies the decision table. It only writes when needsRepair(cps),
// which readSector guarantees happens under the exclusive lock.
func (c *coordinator) resolve(loc Location, cps [2]sectorCopy, dst []byte) (readOutcome, error) {
	for _, cp := range cps {
		if cp.err == errChecksumMismatch {
			atomic.AddUint64(&c.st.mismatches, 1)
		}
	}

	a, b := cps[Primary], cps[Secondary]
	switch {
	case a.err == nil && b.err == nil:
		copy(dst, a.data)
		if !bytes.Equal(a.data, b.data) {
			// Both verify, so this is a write that reached only one mirror.
			atomic.AddUint64(&c.st.divergent, 1)
			c.logger.Printf("sector %d: mirrors verify but differ, serving primary", loc.Sector)
		}
		return readClean, nil

	case a.err != nil && b.err != nil:
		atomic.AddUint64(&c.st.unrecoverable, 1)
		uerr := &SectorUnrecoverableError{Sector: loc.Sector, Causes: [2]error{a.err, b.err}}
		c.logger.Printf("%v", uerr)
		c.record(newEvent(EventUnrecoverable, loc.Sector, Primary, uerr))
		return readClean, uerr
	}

	good := Primary
	if a.err != nil {
		good = Secondary
	}
	copy(dst, cps[good].data)
	return c.repair(loc, cps[good], cps[good.other()], good.other()), nil
}

// repair rewrites the bad copy from the verified one. Failures are logged
// and journaled only: the caller already has verified data.
func (c *coordinator) repair(loc Location, good, bad sectorCopy, target MirrorID) readOutcome {
	if bad.unreadable {
		atomic.AddUint64(&c.st.repairsSkipped, 1)
		c.logger.Printf("sector %d: %s mirror unreadable, repair skipped. Why: %v", loc.Sector, target, bad.err)
		c.record(newEvent(EventRepairSkipped, loc.Sector, target, bad.err))
		return readDegraded
	}

	sum := checksumAt(good.block, loc.ChecksumIndex)
	if err := c.commit(c.mirrors[target], loc, good.data, sum, bad.block); err != nil {
		atomic.AddUint64(&c.st.repairFailures, 1)
		c.logger.Printf("sector %d: repair of %s mirror failed. Why: %v", loc.Sector, target, err)
		c.record(newEvent(EventRepairFailed, loc.Sector, target, err))
		return readDegraded
	}

	atomic.AddUint64(&c.st.repairs, 1)
	c.logger.Printf("sector %d: repaired %s mirror (%v)", loc.Sector, target, bad.err)
	c.record(newEvent(EventRepaired, loc.Sector, target, bad.err))
	return readRepaired
}

func (c *coordinator) record(ev Event) {
	if err := c.journal.Record(ev); err != nil {
		c.logger.Printf("journal %s event for sector %d failed. Why: %v", ev.Kind, ev.Sector, err)
	}
}
