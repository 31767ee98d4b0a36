package ssr

import (
	"context"
	"fmt"
)

// ScrubReport summarises one pass over every sector.
type ScrubReport struct {
	Scanned       int64   `json:"scanned"`
	Repaired      []int64 `json:"repaired"`
	Degraded      []int64 `json:"degraded"` // verified copy found, repair not written
	Unrecoverable []int64 `json:"unrecoverable"`
}

// Scrub reads every sector through the verified read path so that latent
// corruption is repaired before it is needed. progress, when non-nil, is
// called after each sector. Cancelling ctx stops the pass between sectors
// and returns the partial report with ctx.Err().
func (d *LogicalDevice) Scrub(ctx context.Context, progress func(done, total int64)) (ScrubReport, error) {
	var rep ScrubReport

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return rep, ErrClosed
	}
	d.inflight.Add(1)
	d.mu.RUnlock()
	defer d.inflight.Done()

	buf := make([]byte, d.geo.SectorSize)
	for s := int64(0); s < d.geo.Capacity; s++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		out, err := d.core.readSector(s, buf)
		switch {
		case IsUnrecoverable(err):
			rep.Unrecoverable = append(rep.Unrecoverable, s)
		case err != nil:
			return rep, fmt.Errorf("scrub sector %d: %w", s, err)
		case out == readRepaired:
			rep.Repaired = append(rep.Repaired, s)
		case out == readDegraded:
			rep.Degraded = append(rep.Degraded, s)
		}
		rep.Scanned++
		if progress != nil {
			progress(rep.Scanned, d.geo.Capacity)
		}
	}
	return rep, nil
}
