package codec

import (
	"fmt"

	"specimenpro/models"
	"specimenpro/utils"
)

const (
	EventIDPrefix    = "event-"
	SpecimenIDPrefix = "spec-"
	BadgeIDPrefix    = "badge-"

	idTokenLength = 8
	maxIDAttempts = 64
)

// idScope is the set of ids already taken in one scope: the corpus for
// events, the parent event for specimens and badges.
type idScope map[string]struct{}

// next draws tokens until one is free in the scope, then reserves it.
func (s idScope) next(prefix string) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := prefix + utils.ShortToken(idTokenLength)
		if _, taken := s[id]; !taken {
			s[id] = struct{}{}
			return id, nil
		}
	}
	return "", fmt.Errorf("could not allocate a free %sid after %d attempts", prefix, maxIDAttempts)
}

// NewEventID returns an event id not present in taken.
func NewEventID(taken map[string]struct{}) (string, error) {
	scope := idScope{}
	for id := range taken {
		scope[id] = struct{}{}
	}
	return scope.next(EventIDPrefix)
}

// AssignIDs fills in missing specimen and badge ids of e. Existing ids are
// never touched. It does not assign e.ID; see AssignCorpusIDs.
func AssignIDs(e *models.Event) error {
	specimens := idScope{}
	for _, s := range e.Specimens {
		if s.ID != "" {
			specimens[s.ID] = struct{}{}
		}
	}
	for _, s := range e.Specimens {
		if s.ID != "" {
			continue
		}
		id, err := specimens.next(SpecimenIDPrefix)
		if err != nil {
			return err
		}
		s.ID = id
	}

	badges := idScope{}
	for _, b := range e.Badges {
		if b.ID != "" {
			badges[b.ID] = struct{}{}
		}
	}
	for _, b := range e.Badges {
		if b.ID != "" {
			continue
		}
		id, err := badges.next(BadgeIDPrefix)
		if err != nil {
			return err
		}
		b.ID = id
	}
	return nil
}

// AssignCorpusIDs fills in every missing id in the corpus, with event ids
// unique across the corpus and child ids unique within their event.
func AssignCorpusIDs(c *models.Corpus) error {
	events := idScope(c.IDs())
	for _, e := range c.Events {
		if e.ID == "" {
			id, err := events.next(EventIDPrefix)
			if err != nil {
				return err
			}
			e.ID = id
		}
		if err := AssignIDs(e); err != nil {
			return fmt.Errorf("event %s: %w", e.ID, err)
		}
	}
	return nil
}
