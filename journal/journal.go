// Package journal stores ssr integrity events in a pebble LSM.
//
// Keys are "ev/" followed by a big-endian sequence number, so iteration order
// is recording order. Values are JSON-encoded ssr.Event.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/luhtfiimanal/go-ssr"
)

var keyPrefix = []byte("ev/")

// Journal implements ssr.Journal on top of pebble.
type Journal struct {
	db   *pebble.DB
	opts *pebble.Options
	sync bool

	mu  sync.Mutex
	seq uint64
}

// Open opens or creates the journal at path.
func Open(path string, opts ...Option) (*Journal, error) {
	defaultOpts := &pebble.Options{
		Cache:        pebble.NewCache(8 << 20),
		MemTableSize: 4 << 20,
		BytesPerSync: 1 << 20,
	}

	j := &Journal{
		opts: defaultOpts,
		sync: true,
	}
	for _, opt := range opts {
		opt(j)
	}

	db, err := pebble.Open(path, j.opts)
	// pebble holds its own reference to the cache once open
	j.opts.Cache.Unref()
	if err != nil {
		return nil, fmt.Errorf("open pebble journal %s: %w", path, err)
	}
	j.db = db

	last, err := j.lastSeq()
	if err != nil {
		db.Close()
		return nil, err
	}
	j.seq = last
	return j, nil
}

func encodeKey(seq uint64) []byte {
	k := make([]byte, len(keyPrefix)+8)
	copy(k, keyPrefix)
	binary.BigEndian.PutUint64(k[len(keyPrefix):], seq)
	return k
}

func prefixUpperBound() []byte {
	end := append([]byte(nil), keyPrefix...)
	end[len(end)-1]++
	return end
}

func (j *Journal) lastSeq() (uint64, error) {
	it, err := j.db.NewIter(&pebble.IterOptions{LowerBound: keyPrefix, UpperBound: prefixUpperBound()})
	if err != nil {
		return 0, err
	}
	defer it.Close()
	if !it.Last() {
		return 0, it.Error()
	}
	return binary.BigEndian.Uint64(it.Key()[len(keyPrefix):]), nil
}

// Record appends ev to the journal.
func (j *Journal) Record(ev ssr.Event) error {
	val, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	wo := pebble.NoSync
	if j.sync {
		wo = pebble.Sync
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.db.Set(encodeKey(j.seq+1), val, wo); err != nil {
		return err
	}
	j.seq++
	return nil
}

// List returns up to limit events, newest first. limit <= 0 returns all.
func (j *Journal) List(limit int) ([]ssr.Event, error) {
	it, err := j.db.NewIter(&pebble.IterOptions{LowerBound: keyPrefix, UpperBound: prefixUpperBound()})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []ssr.Event
	for ok := it.Last(); ok; ok = it.Prev() {
		if limit > 0 && len(out) >= limit {
			break
		}
		var ev ssr.Event
		if err := json.Unmarshal(it.Value(), &ev); err != nil {
			return out, fmt.Errorf("decode event %x: %w", it.Key(), err)
		}
		out = append(out, ev)
	}
	return out, it.Error()
}

// Len returns the number of recorded events.
func (j *Journal) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq
}

func (j *Journal) Close() error {
	return j.db.Close()
}
