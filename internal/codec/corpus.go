package codec

import (
	"encoding/json"
	"fmt"

	"specimenpro/internal/status"
	"specimenpro/models"
)

// MarshalCorpus returns the canonical corpus document: a JSON array of events
// in corpus order. Missing ids are assigned first. Two events already sharing
// an id are rejected with status.ErrDuplicateIdentifier.
func MarshalCorpus(c *models.Corpus) ([]byte, error) {
	if err := checkUnique(c.Events, nil); err != nil {
		return nil, err
	}
	if err := AssignCorpusIDs(c); err != nil {
		return nil, err
	}
	events := make([]interface{}, 0, len(c.Events))
	for i, e := range c.Events {
		m, err := encodeEvent(e, fmt.Sprintf("events[%d].", i))
		if err != nil {
			return nil, err
		}
		events = append(events, m)
	}
	return encode(events)
}

// UnmarshalCorpus parses a corpus document. Besides the canonical array it
// accepts the {"version", "lastUpdated", "events"} wrapper of the first
// manager; the wrapper metadata is not kept.
func UnmarshalCorpus(data []byte) (*models.Corpus, error) {
	raw := json.RawMessage(data)
	if isKind(raw, '{') {
		o, err := newObject(raw, "")
		if err != nil {
			return nil, err
		}
		inner, ok := o.take("events")
		if !ok {
			return nil, malformed("events", fmt.Errorf("missing event list"))
		}
		raw = inner
	}
	if !isKind(raw, '[') {
		return nil, malformed("events", fmt.Errorf("expected a list of events"))
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, malformed("events", err)
	}

	c := &models.Corpus{}
	for i, item := range items {
		e, err := decodeEvent(item, fmt.Sprintf("events[%d]", i))
		if err != nil {
			return nil, err
		}
		c.Events = append(c.Events, e)
	}
	if err := checkUnique(c.Events, nil); err != nil {
		return nil, err
	}
	return c, nil
}

// Merge appends the events of src to dst. Imported ids are never rewritten:
// an id already used in dst, or repeated inside src, rejects the whole merge
// and leaves dst unchanged.
func Merge(dst, src *models.Corpus) error {
	if err := checkUnique(src.Events, dst.IDs()); err != nil {
		return err
	}
	dst.Events = append(dst.Events, src.Events...)
	return nil
}

func checkUnique(events []*models.Event, taken map[string]struct{}) error {
	seen := make(map[string]int, len(events))
	for i, e := range events {
		if e.ID == "" {
			continue
		}
		if _, ok := taken[e.ID]; ok {
			return fmt.Errorf("%w: event id %q already exists", status.ErrDuplicateIdentifier, e.ID)
		}
		if first, ok := seen[e.ID]; ok {
			return fmt.Errorf("%w: event id %q used by events[%d] and events[%d]", status.ErrDuplicateIdentifier, e.ID, first, i)
		}
		seen[e.ID] = i
	}
	return nil
}
