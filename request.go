package ssr

// Op is the direction of a request.
type Op int

const (
	OpRead Op = iota
	OpWrite
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	}
	return "unknown"
}

// Request is one logical I/O: len(Buf)/SectorSize contiguous sectors
// starting at Sector.
//
// Buf is borrowed until Done runs: reads fill it, writes read from it. The
// caller must not touch it in between. Done is called exactly once with nil
// or the first error met, from a worker goroutine.
type Request struct {
	Op     Op
	Sector int64
	Buf    []byte
	Done   func(err error)
}
