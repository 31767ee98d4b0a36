package ssr

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestWorkerPoolQueueFull(t *testing.T) {
	p := NewWorkerPool(1, 1)
	release := make(chan struct{})
	started := make(chan struct{})

	// occupy the single worker, then fill the single queue slot
	if err := p.Submit(func() { close(started); <-release }); err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-started
	if err := p.Submit(func() {}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := p.Submit(func() {}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}

	close(release)
	p.Close()
	if err := p.Submit(func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("submit after close err = %v, want ErrClosed", err)
	}
}

func TestWorkerPoolRunsEverythingOnce(t *testing.T) {
	p := NewWorkerPool(4, 1000)
	var n int64
	for i := 0; i < 1000; i++ {
		if err := p.Submit(func() { atomic.AddInt64(&n, 1) }); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	p.Close()
	if n != 1000 {
		t.Fatalf("ran %d units, want 1000", n)
	}
}

// syncDispatcher runs work on a fresh goroutine, never rejecting.
type syncDispatcher struct{ wg sync.WaitGroup }

func (s *syncDispatcher) Submit(work func()) error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		work()
	}()
	return nil
}

func TestSubmitCallsDoneOnce(t *testing.T) {
	opts := DefaultOptions()
	disp := &syncDispatcher{}
	opts.Dispatcher = disp
	d, _, _ := newMemTestDevice(t, 8, opts)

	var calls int64
	done := make(chan error, 2)
	req := &Request{
		Op:     OpWrite,
		Sector: 2,
		Buf:    make([]byte, 3*512),
		Done: func(err error) {
			atomic.AddInt64(&calls, 1)
			done <- err
		},
	}
	if err := d.Submit(req); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("request failed: %v", err)
	}
	disp.wg.Wait()
	if calls != 1 {
		t.Fatalf("Done called %d times", calls)
	}
	if st := d.GetStats(); st.Writes != 3 {
		t.Fatalf("writes = %d, want 3", st.Writes)
	}
}

func TestMultiSectorStopsAtFirstError(t *testing.T) {
	d, a, b := newMemTestDevice(t, 8, DefaultOptions())
	g := d.Geometry()
	// sector 4 is unrecoverable
	a.Poke(g.DataOffset(4), []byte{1})
	b.Poke(g.DataOffset(4), []byte{1})

	buf := make([]byte, 4*512)
	err := d.ReadSectors(2, buf)
	var uerr *SectorUnrecoverableError
	if !errors.As(err, &uerr) || uerr.Sector != 4 {
		t.Fatalf("err = %v, want sector 4 unrecoverable", err)
	}
	if st := d.GetStats(); st.Reads != 3 {
		t.Fatalf("reads = %d, want 3 (stop after sector 4)", st.Reads)
	}
}

func TestDeviceQueueFull(t *testing.T) {
	opts := DefaultOptions()
	opts.Workers = 1
	opts.QueueSize = 0
	d, _, _ := newMemTestDevice(t, 8, opts)

	release := make(chan struct{})
	started := make(chan struct{})
	blocker := &Request{Op: OpRead, Sector: 0, Buf: make([]byte, 512), Done: func(error) {
		close(started)
		<-release
	}}
	// an unbuffered queue accepts only when the worker is idle and receiving
	for {
		err := d.Submit(blocker)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrQueueFull) {
			t.Fatalf("submit: %v", err)
		}
	}
	<-started

	err := d.Submit(&Request{Op: OpRead, Sector: 1, Buf: make([]byte, 512)})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	close(release)
}
