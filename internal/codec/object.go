package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"specimenpro/internal/status"
)

// object is one decoded JSON object whose fields are consumed one by one.
// Whatever is left at the end is unknown to us and kept as Extra.
type object struct {
	path   string
	fields map[string]json.RawMessage
}

func newObject(raw json.RawMessage, path string) (*object, error) {
	if !isKind(raw, '{') {
		return nil, malformed(path, fmt.Errorf("expected an object"))
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, malformed(path, err)
	}
	return &object{path: path, fields: fields}, nil
}

func (o *object) field(key string) string {
	if o.path == "" {
		return key
	}
	return o.path + "." + key
}

// take removes key (or, failing that, the first present alias) and returns
// its raw value. Null counts as absent. All aliases are consumed so a legacy
// spelling never lingers in Extra.
func (o *object) take(key string, aliases ...string) (json.RawMessage, bool) {
	raw, ok := o.fields[key]
	delete(o.fields, key)
	for _, alias := range aliases {
		if v, found := o.fields[alias]; found {
			delete(o.fields, alias)
			if !ok {
				raw, ok = v, true
			}
		}
	}
	if !ok || isNull(raw) {
		return nil, false
	}
	return raw, true
}

func (o *object) str(key string, aliases ...string) (string, error) {
	raw, ok := o.take(key, aliases...)
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", malformed(o.field(key), fmt.Errorf("expected a string"))
	}
	return s, nil
}

func (o *object) number(key string) (*float64, error) {
	raw, ok := o.take(key)
	if !ok {
		return nil, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, malformed(o.field(key), fmt.Errorf("expected a number"))
	}
	return &f, nil
}

func (o *object) integer(key string) (int, error) {
	raw, ok := o.take(key)
	if !ok {
		return 0, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, malformed(o.field(key), fmt.Errorf("expected an integer"))
	}
	return n, nil
}

func (o *object) boolean(key string) (bool, error) {
	raw, ok := o.take(key)
	if !ok {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, malformed(o.field(key), fmt.Errorf("expected a boolean"))
	}
	return b, nil
}

func (o *object) timestamp(key string, aliases ...string) (time.Time, error) {
	s, err := o.str(key, aliases...)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	t, err := ParseTime(s)
	if err != nil {
		return time.Time{}, malformed(o.field(key), err)
	}
	return t, nil
}

// enum decodes a string field with parse; empty means unset.
func enum[T any](o *object, key string, parse func(string) (T, error)) (T, error) {
	var zero T
	s, err := o.str(key)
	if err != nil || s == "" {
		return zero, err
	}
	v, err := parse(s)
	if err != nil {
		return zero, malformed(o.field(key), err)
	}
	return v, nil
}

// array returns the elements of a list field. Absent or null is an empty
// list; anything else that is not a list is malformed.
func (o *object) array(key string) ([]json.RawMessage, error) {
	raw, ok := o.take(key)
	if !ok {
		return nil, nil
	}
	if !isKind(raw, '[') {
		return nil, malformed(o.field(key), fmt.Errorf("expected a list"))
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, malformed(o.field(key), err)
	}
	return items, nil
}

func (o *object) extra() map[string]json.RawMessage {
	if len(o.fields) == 0 {
		return nil
	}
	return o.fields
}

func malformed(field string, err error) error {
	if field == "" {
		field = "$"
	}
	return &status.MalformedRecordError{Field: field, Err: err}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isKind(raw json.RawMessage, open byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == open
}
