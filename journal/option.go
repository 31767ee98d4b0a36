package journal

import (
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

type Option func(*Journal)

func WithCache(size int64) Option {
	return func(j *Journal) {
		j.opts.Cache.Unref()
		j.opts.Cache = pebble.NewCache(size)
	}
}

func WithMemTableSize(size uint64) Option {
	return func(j *Journal) {
		j.opts.MemTableSize = size
	}
}

// WithMemFS keeps the journal in memory, for tests.
func WithMemFS() Option {
	return func(j *Journal) {
		j.opts.FS = vfs.NewMem()
	}
}

// WithoutSync skips the fsync after each record.
func WithoutSync() Option {
	return func(j *Journal) {
		j.sync = false
	}
}
