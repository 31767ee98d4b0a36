package ssr

import "sync"

// Dispatcher runs units of work off the submission path. Submit must not
// block; every accepted unit runs exactly once.
type Dispatcher interface {
	Submit(work func()) error
}

// WorkerPool is the default Dispatcher: a bounded queue drained by a fixed
// number of goroutines. One worker serializes all I/O; more workers rely on
// the per-sector locks of the coordinator.
type WorkerPool struct {
	work   chan func()
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewWorkerPool starts workers goroutines behind a queue of queueSize slots.
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &WorkerPool{work: make(chan func(), queueSize)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.loop()
	}
	return p
}

func (p *WorkerPool) loop() {
	defer p.wg.Done()
	for w := range p.work {
		w()
	}
}

// Submit enqueues work, failing with ErrQueueFull instead of blocking.
func (p *WorkerPool) Submit(work func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.work <- work:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops intake, runs everything already queued and waits for the
// workers to exit.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.work)
	p.mu.Unlock()
	p.wg.Wait()
}
