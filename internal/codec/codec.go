// Package codec converts events to and from their canonical JSON form.
//
// The canonical form is indented JSON with object keys in lexical order,
// timestamps in UTC RFC 3339, enums in snake_case and unknown fields carried
// through untouched. Encoding assigns ids to records that lack one; decoding
// also accepts the field spellings written by the first version of the event
// manager (startDate, audioNoteUrl, icon, flat badge requirements, a plain
// string location).
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"specimenpro/models"
)

// MarshalEvent returns the canonical form of e. Missing ids, including e.ID,
// are assigned first and written back into e, so encoding the same event
// twice yields the same ids.
func MarshalEvent(e *models.Event) ([]byte, error) {
	if e.ID == "" {
		id, err := NewEventID(nil)
		if err != nil {
			return nil, err
		}
		e.ID = id
	}
	if err := AssignIDs(e); err != nil {
		return nil, err
	}
	m, err := encodeEvent(e, "")
	if err != nil {
		return nil, err
	}
	return encode(m)
}

// UnmarshalEvent parses one event in canonical or legacy form.
func UnmarshalEvent(data []byte) (*models.Event, error) {
	return decodeEvent(json.RawMessage(data), "")
}

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// withExtra copies unknown fields into m without letting them shadow a
// known one.
func withExtra(m map[string]interface{}, extra map[string]json.RawMessage) map[string]interface{} {
	for k, v := range extra {
		if _, known := m[k]; !known {
			m[k] = v
		}
	}
	return m
}

func putEnum(m map[string]interface{}, key, path string, v interface {
	IsSet() bool
	MarshalText() ([]byte, error)
}) error {
	if !v.IsSet() {
		return nil
	}
	text, err := v.MarshalText()
	if err != nil {
		return malformed(path+key, err)
	}
	m[key] = string(text)
	return nil
}

func encodeEvent(e *models.Event, path string) (map[string]interface{}, error) {
	m := map[string]interface{}{
		"id":          e.ID,
		"title":       e.Title,
		"description": e.Description,
		"imageUrl":    e.ImageURL,
		"location":    encodeLocation(e.Location),
	}
	if err := putEnum(m, "type", path, e.Type); err != nil {
		return nil, err
	}
	if err := putEnum(m, "status", path, e.Status); err != nil {
		return nil, err
	}
	if !e.StartTime.IsZero() {
		m["startTime"] = FormatTime(e.StartTime)
	}
	if !e.EndTime.IsZero() {
		m["endTime"] = FormatTime(e.EndTime)
	}

	specimens := make([]interface{}, 0, len(e.Specimens))
	for i, s := range e.Specimens {
		if s == nil {
			return nil, malformed(fmt.Sprintf("%sspecimens[%d]", path, i), fmt.Errorf("nil specimen"))
		}
		sm, err := encodeSpecimen(s, fmt.Sprintf("%sspecimens[%d].", path, i))
		if err != nil {
			return nil, err
		}
		specimens = append(specimens, sm)
	}
	m["specimens"] = specimens

	badges := make([]interface{}, 0, len(e.Badges))
	for i, b := range e.Badges {
		if b == nil {
			return nil, malformed(fmt.Sprintf("%sbadges[%d]", path, i), fmt.Errorf("nil badge"))
		}
		bm, err := encodeBadge(b, fmt.Sprintf("%sbadges[%d].", path, i))
		if err != nil {
			return nil, err
		}
		badges = append(badges, bm)
	}
	m["badges"] = badges

	return withExtra(m, e.Extra), nil
}

func encodeLocation(l models.Location) map[string]interface{} {
	m := map[string]interface{}{
		"name":          l.Name,
		"alwaysVisible": l.AlwaysVisible,
	}
	if l.Latitude != nil {
		m["latitude"] = *l.Latitude
	}
	if l.Longitude != nil {
		m["longitude"] = *l.Longitude
	}
	if l.RadiusMeters != nil {
		m["radiusMeters"] = *l.RadiusMeters
	}
	return withExtra(m, l.Extra)
}

func encodeSpecimen(s *models.Specimen, path string) (map[string]interface{}, error) {
	m := map[string]interface{}{
		"id":          s.ID,
		"name":        s.Name,
		"locality":    s.Locality,
		"description": s.Description,
		"composition": s.Composition,
		"funFacts":    s.FunFacts,
		"story":       s.Story,
		"photoUrl":    s.PhotoURL,
		"audioUrl":    s.AudioURL,
	}
	if err := putEnum(m, "rarity", path, s.Rarity); err != nil {
		return nil, err
	}
	return withExtra(m, s.Extra), nil
}

func encodeBadge(b *models.Badge, path string) (map[string]interface{}, error) {
	req := map[string]interface{}{"count": b.Requirement.Count}
	if err := putEnum(req, "type", path+"requirement.", b.Requirement.Type); err != nil {
		return nil, err
	}
	req = withExtra(req, b.Requirement.Extra)
	m := map[string]interface{}{
		"id":          b.ID,
		"title":       b.Title,
		"description": b.Description,
		"iconName":    b.IconName,
		"color":       b.Color,
		"requirement": req,
	}
	return withExtra(m, b.Extra), nil
}

func decodeEvent(raw json.RawMessage, path string) (*models.Event, error) {
	o, err := newObject(raw, path)
	if err != nil {
		return nil, err
	}
	e := &models.Event{}
	if e.ID, err = o.str("id"); err != nil {
		return nil, err
	}
	if e.Title, err = o.str("title"); err != nil {
		return nil, err
	}
	if e.Description, err = o.str("description"); err != nil {
		return nil, err
	}
	if e.Type, err = enum(o, "type", models.ParseEventType); err != nil {
		return nil, err
	}
	if e.Status, err = enum(o, "status", models.ParseEventStatus); err != nil {
		return nil, err
	}
	if e.StartTime, err = o.timestamp("startTime", "startDate"); err != nil {
		return nil, err
	}
	if e.EndTime, err = o.timestamp("endTime", "endDate"); err != nil {
		return nil, err
	}
	if e.ImageURL, err = o.str("imageUrl"); err != nil {
		return nil, err
	}
	if raw, ok := o.take("location"); ok {
		if e.Location, err = decodeLocation(raw, o.field("location")); err != nil {
			return nil, err
		}
	}

	items, err := o.array("specimens")
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		s, err := decodeSpecimen(item, fmt.Sprintf("%s[%d]", o.field("specimens"), i))
		if err != nil {
			return nil, err
		}
		e.Specimens = append(e.Specimens, s)
	}

	if items, err = o.array("badges"); err != nil {
		return nil, err
	}
	for i, item := range items {
		b, err := decodeBadge(item, fmt.Sprintf("%s[%d]", o.field("badges"), i))
		if err != nil {
			return nil, err
		}
		e.Badges = append(e.Badges, b)
	}

	e.Extra = o.extra()
	return e, nil
}

func decodeLocation(raw json.RawMessage, path string) (models.Location, error) {
	var l models.Location
	// the first manager stored the location as a bare name
	if isKind(raw, '"') {
		if err := json.Unmarshal(raw, &l.Name); err != nil {
			return l, malformed(path, err)
		}
		return l, nil
	}
	o, err := newObject(raw, path)
	if err != nil {
		return l, err
	}
	if l.Name, err = o.str("name"); err != nil {
		return l, err
	}
	if l.Latitude, err = o.number("latitude"); err != nil {
		return l, err
	}
	if l.Longitude, err = o.number("longitude"); err != nil {
		return l, err
	}
	if l.RadiusMeters, err = o.number("radiusMeters"); err != nil {
		return l, err
	}
	if l.AlwaysVisible, err = o.boolean("alwaysVisible"); err != nil {
		return l, err
	}
	l.Extra = o.extra()
	return l, nil
}

func decodeSpecimen(raw json.RawMessage, path string) (*models.Specimen, error) {
	o, err := newObject(raw, path)
	if err != nil {
		return nil, err
	}
	s := &models.Specimen{}
	for _, f := range []struct {
		dst     *string
		key     string
		aliases []string
	}{
		{&s.ID, "id", nil},
		{&s.Name, "name", nil},
		{&s.Locality, "locality", nil},
		{&s.Description, "description", nil},
		{&s.Composition, "composition", nil},
		{&s.FunFacts, "funFacts", nil},
		{&s.Story, "story", nil},
		{&s.PhotoURL, "photoUrl", nil},
		{&s.AudioURL, "audioUrl", []string{"audioNoteUrl"}},
	} {
		if *f.dst, err = o.str(f.key, f.aliases...); err != nil {
			return nil, err
		}
	}
	if s.Rarity, err = enum(o, "rarity", models.ParseRarity); err != nil {
		return nil, err
	}
	s.Extra = o.extra()
	return s, nil
}

func decodeBadge(raw json.RawMessage, path string) (*models.Badge, error) {
	o, err := newObject(raw, path)
	if err != nil {
		return nil, err
	}
	b := &models.Badge{}
	if b.ID, err = o.str("id"); err != nil {
		return nil, err
	}
	if b.Title, err = o.str("title"); err != nil {
		return nil, err
	}
	if b.Description, err = o.str("description"); err != nil {
		return nil, err
	}
	if b.IconName, err = o.str("iconName", "icon"); err != nil {
		return nil, err
	}
	if b.Color, err = o.str("color"); err != nil {
		return nil, err
	}

	req, ok := o.fields["requirement"]
	switch {
	case ok && isKind(req, '{'):
		o.take("requirement")
		if b.Requirement, err = decodeRequirement(req, o.field("requirement")); err != nil {
			return nil, err
		}
	default:
		// flat form: "requirement": 3, "requirementType": "collect_count"
		if b.Requirement.Count, err = o.integer("requirement"); err != nil {
			return nil, err
		}
		if b.Requirement.Type, err = enum(o, "requirementType", models.ParseRequirementType); err != nil {
			return nil, err
		}
	}

	b.Extra = o.extra()
	return b, nil
}

func decodeRequirement(raw json.RawMessage, path string) (models.Requirement, error) {
	var r models.Requirement
	o, err := newObject(raw, path)
	if err != nil {
		return r, err
	}
	if r.Type, err = enum(o, "type", models.ParseRequirementType); err != nil {
		return r, err
	}
	if r.Count, err = o.integer("count"); err != nil {
		return r, err
	}
	r.Extra = o.extra()
	return r, nil
}
