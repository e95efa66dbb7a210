package models

// Corpus is the ordered list of events written to one document.
type Corpus struct {
	Events []*Event
}

func (c *Corpus) Find(id string) (*Event, int) {
	for i, e := range c.Events {
		if e.ID == id {
			return e, i
		}
	}
	return nil, -1
}

// Remove deletes the event with the given id together with its specimens and
// badges. It reports whether anything was removed.
func (c *Corpus) Remove(id string) bool {
	_, i := c.Find(id)
	if i < 0 {
		return false
	}
	c.Events = append(c.Events[:i], c.Events[i+1:]...)
	return true
}

// IDs returns the set of non-empty event ids.
func (c *Corpus) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(c.Events))
	for _, e := range c.Events {
		if e.ID != "" {
			ids[e.ID] = struct{}{}
		}
	}
	return ids
}

// Published returns the events that leave the editor, i.e. everything but
// drafts, in corpus order.
func (c *Corpus) Published() *Corpus {
	out := &Corpus{}
	for _, e := range c.Events {
		if !e.IsDraft() {
			out.Events = append(out.Events, e)
		}
	}
	return out
}
