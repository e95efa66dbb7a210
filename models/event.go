package models

import (
	"encoding/json"
	"time"
)

type Event struct {
	ID          string
	Title       string
	Description string
	Type        EventType
	Status      EventStatus
	StartTime   time.Time // zero when absent
	EndTime     time.Time // zero when absent
	Location    Location
	ImageURL    string
	Specimens   []*Specimen
	Badges      []*Badge

	// Extra holds fields this package does not know about, keyed by their
	// JSON name, so editing a record never drops them.
	Extra map[string]json.RawMessage
}

type Location struct {
	Name          string
	Latitude      *float64
	Longitude     *float64
	RadiusMeters  *float64
	AlwaysVisible bool

	Extra map[string]json.RawMessage
}

func (e *Event) IsDraft() bool {
	return e.Status == EventStatusDraft
}

// FindSpecimen returns the specimen with the given id and its index, or
// (nil, -1).
func (e *Event) FindSpecimen(id string) (*Specimen, int) {
	for i, s := range e.Specimens {
		if s.ID == id {
			return s, i
		}
	}
	return nil, -1
}

func (e *Event) FindBadge(id string) (*Badge, int) {
	for i, b := range e.Badges {
		if b.ID == id {
			return b, i
		}
	}
	return nil, -1
}

// Float returns a pointer to v, for filling in Location coordinates.
func Float(v float64) *float64 {
	return &v
}
