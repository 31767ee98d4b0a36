package ssr

import (
	"time"

	"github.com/google/uuid"
)

// EventKind classifies a journal event.
type EventKind string

const (
	EventRepaired      EventKind = "repaired"       // bad mirror rewritten from the good one
	EventRepairFailed  EventKind = "repair_failed"  // rewrite of the bad mirror failed
	EventRepairSkipped EventKind = "repair_skipped" // bad mirror was unreadable, not rewritten
	EventUnrecoverable EventKind = "unrecoverable"  // neither mirror verified
	EventWriteFailed   EventKind = "write_failed"   // one mirror rejected a sector write
)

// Event is one integrity incident on one sector.
type Event struct {
	ID     uuid.UUID `json:"id"`
	Time   time.Time `json:"time"`
	Kind   EventKind `json:"kind"`
	Sector int64     `json:"sector"`
	Mirror MirrorID  `json:"mirror"` // mirror that was (or should have been) written
	Detail string    `json:"detail,omitempty"`
}

// Journal receives integrity events. It is an audit trail only: the read and
// repair protocol never consults it.
type Journal interface {
	Record(ev Event) error
}

type nopJournal struct{}

func (nopJournal) Record(Event) error { return nil }

func newEvent(kind EventKind, sector int64, m MirrorID, err error) Event {
	ev := Event{
		ID:     uuid.New(),
		Time:   time.Now().UTC(),
		Kind:   kind,
		Sector: sector,
		Mirror: m,
	}
	if err != nil {
		ev.Detail = err.Error()
	}
	return ev
}
