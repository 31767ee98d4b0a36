package ssr

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
)

func TestFormatMakesEverySectorVerify(t *testing.T) {
	g := Geometry{SectorSize: 512, Capacity: 300, DataRegionSize: 400 * 512}
	dev := NewMemDevice(g.MirrorSize())
	dev.Poke(0, bytes.Repeat([]byte{0xee}, 4096))

	if err := Format(dev, g); err != nil {
		t.Fatalf("format: %v", err)
	}
	raw := dev.Bytes()
	if !bytes.Equal(raw[:g.DataRegionSize], make([]byte, g.DataRegionSize)) {
		t.Fatal("data region not zeroed")
	}
	for s := int64(0); s < g.Capacity; s++ {
		data, sum := sectorOf(raw, g, s)
		if !VerifyChecksum(data, sum) {
			t.Fatalf("sector %d does not verify after format", s)
		}
	}

	if err := Format(dev, Geometry{SectorSize: 3}); err == nil {
		t.Fatal("format accepted invalid geometry")
	}
}

func TestUnformattedMirrorsAreUnrecoverable(t *testing.T) {
	opts := DefaultOptions()
	opts.Capacity = 4
	opts.DataRegionSize = 4 * 512
	opts.Logger = log.New(io.Discard, "", 0)
	g := opts.Geometry()
	d, err := New(NewMemDevice(g.MirrorSize()), NewMemDevice(g.MirrorSize()), opts)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer d.Close()

	if _, err := d.ReadSector(0); !IsUnrecoverable(err) {
		t.Fatalf("err = %v, want unrecoverable", err)
	}
	// a write makes the sector valid
	if err := d.WriteSectors(0, make([]byte, 512)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := d.ReadSector(0); err != nil {
		t.Fatalf("read after write: %v", err)
	}
}

func TestScrub(t *testing.T) {
	d, a, b := newMemTestDevice(t, 64, DefaultOptions())
	g := d.Geometry()

	a.Poke(g.DataOffset(5), []byte{1})  // repairable
	b.Poke(g.DataOffset(20), []byte{1}) // repairable
	a.Poke(g.DataOffset(33), []byte{1}) // both bad
	b.Poke(g.DataOffset(33), []byte{2})

	var calls, last int64
	rep, err := d.Scrub(context.Background(), func(done, total int64) {
		calls++
		last = done
		if total != 64 {
			t.Errorf("total = %d", total)
		}
	})
	if err != nil {
		t.Fatalf("scrub: %v", err)
	}
	if rep.Scanned != 64 || calls != 64 || last != 64 {
		t.Fatalf("scanned %d, progress calls %d, last %d", rep.Scanned, calls, last)
	}
	if len(rep.Repaired) != 2 || rep.Repaired[0] != 5 || rep.Repaired[1] != 20 {
		t.Fatalf("repaired = %v", rep.Repaired)
	}
	if len(rep.Unrecoverable) != 1 || rep.Unrecoverable[0] != 33 {
		t.Fatalf("unrecoverable = %v", rep.Unrecoverable)
	}

	// a second pass finds only the lost sector
	rep, err = d.Scrub(context.Background(), nil)
	if err != nil {
		t.Fatalf("second scrub: %v", err)
	}
	if len(rep.Repaired) != 0 || len(rep.Unrecoverable) != 1 {
		t.Fatalf("second pass = %+v", rep)
	}
}

func TestScrubCancel(t *testing.T) {
	d, _, _ := newMemTestDevice(t, 64, DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	rep, err := d.Scrub(ctx, func(done, total int64) {
		if done == 10 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if rep.Scanned != 10 {
		t.Fatalf("scanned %d, want 10", rep.Scanned)
	}
}

func TestStateDirPersistsGeometryAndID(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(dir, "state")
	a, b := filepath.Join(dir, "a.img"), filepath.Join(dir, "b.img")

	opts := DefaultOptions()
	opts.Capacity = 8
	opts.DataRegionSize = 8 * 512
	opts.Create = true
	opts.Format = true
	opts.StateDir = state
	opts.Logger = log.New(io.Discard, "", 0)

	d, err := Open(a, b, opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id := d.ID()
	d.Close()

	if _, err := os.Stat(filepath.Join(state, "ssr.config")); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	// different geometry in options: the persisted one wins
	opts.Capacity = 2
	opts.DataRegionSize = 2 * 512
	opts.Create = false
	opts.Format = false
	d, err = Open(a, b, opts)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()
	if d.ID() != id {
		t.Fatalf("device id changed across reopen: %s != %s", d.ID(), id)
	}
	if d.Capacity() != 8 || d.Geometry().DataRegionSize != 8*512 {
		t.Fatalf("geometry not restored: %+v", d.Geometry())
	}
	if _, err := d.ReadSector(7); err != nil {
		t.Fatalf("read last sector: %v", err)
	}
}

func TestDeviceIDFileIsDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(idPath(dir), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := getOrCreateDeviceID(dir); err == nil {
		t.Fatal("expected error when id path is a directory")
	}
}

func TestResetStats(t *testing.T) {
	d, _, _ := newMemTestDevice(t, 4, DefaultOptions())
	if _, err := d.ReadSector(0); err != nil {
		t.Fatalf("read: %v", err)
	}
	d.ResetStats()
	st := d.GetStats()
	if st.Reads != 0 {
		t.Fatalf("reads = %d after reset", st.Reads)
	}
	if st.Mirrors[Primary].Reads == 0 {
		t.Fatal("mirror stats should survive reset")
	}
}
