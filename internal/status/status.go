package status

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation          = errors.New("validation: record is invalid")
	ErrMalformedRecord     = errors.New("codec: malformed record")
	ErrInvalidIdentifier   = errors.New("qr: invalid identifier")
	ErrCollisionDetected   = errors.New("asset: collision detected")
	ErrDuplicateIdentifier = errors.New("corpus: duplicate identifier")
	ErrEventNotFound       = errors.New("corpus: event not found")
	ErrSpecimenNotFound    = errors.New("corpus: specimen not found")
	ErrBadgeNotFound       = errors.New("corpus: badge not found")
	ErrNotPublished        = errors.New("publish: nothing published yet")
)

// FieldError is one problem with one field of a record. Field is a path such
// as "location.latitude" or "specimens[2].name".
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Reason
}

// ValidationErrors is the ordered, accumulated result of validating a record.
// An empty value means the record is valid.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.String()
	}
	return "invalid record: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Fields returns the field paths in report order.
func (v ValidationErrors) Fields() []string {
	fields := make([]string, len(v))
	for i, e := range v {
		fields[i] = e.Field
	}
	return fields
}

// Prefix returns a copy with every field path prefixed, e.g. "events[3].".
func (v ValidationErrors) Prefix(p string) ValidationErrors {
	out := make(ValidationErrors, len(v))
	for i, e := range v {
		out[i] = FieldError{Field: p + e.Field, Reason: e.Reason}
	}
	return out
}

// Err returns nil for an empty result so callers can use the usual
// `if err != nil` form.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

type MalformedRecordError struct {
	Field string
	Err   error
}

func (e *MalformedRecordError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("malformed record: field %q", e.Field)
	}
	return fmt.Sprintf("malformed record: field %q: %v", e.Field, e.Err)
}

func (e *MalformedRecordError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedRecord}
	}
	return []error{ErrMalformedRecord, e.Err}
}

type InvalidIdentifierError struct {
	Field  string // "eventId" or "specimenId"
	Value  string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %s=%q: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidIdentifierError) Unwrap() error { return ErrInvalidIdentifier }

// CollisionError reports an existing destination file whose content differs
// from the file being placed there.
type CollisionError struct {
	Source      string
	Destination string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("asset collision: %s already exists with different content than %s", e.Destination, e.Source)
}

func (e *CollisionError) Unwrap() error { return ErrCollisionDetected }
