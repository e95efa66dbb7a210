// Package validation checks event records before they are serialized or
// imported. Validation never mutates the record and reports every problem it
// finds rather than stopping at the first.
package validation

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"specimenpro/internal/status"
	"specimenpro/models"
)

var (
	latitudeRange  = []validation.Rule{validation.Min(-90.0), validation.Max(90.0)}
	longitudeRange = []validation.Rule{validation.Min(-180.0), validation.Max(180.0)}
)

// positive rejects a present value that is not strictly greater than zero.
// ozzo's threshold rules skip zero values, so it cannot be expressed with Min.
var positive = validation.By(func(value interface{}) error {
	switch v := value.(type) {
	case *float64:
		if v != nil && *v <= 0 {
			return errors.New("must be greater than 0")
		}
	case int:
		if v <= 0 {
			return errors.New("must be greater than 0")
		}
	}
	return nil
})

type enum interface {
	IsSet() bool
	IsValid() bool
	String() string
}

var member = validation.By(func(value interface{}) error {
	e, ok := value.(enum)
	if !ok || !e.IsSet() || e.IsValid() {
		return nil
	}
	return fmt.Errorf("%s is not one of the allowed values", e.String())
})

type checker struct {
	errs status.ValidationErrors
}

func (c *checker) check(field string, value interface{}, rules ...validation.Rule) {
	if err := validation.Validate(value, rules...); err != nil {
		c.errs = append(c.errs, status.FieldError{Field: field, Reason: err.Error()})
	}
}

func (c *checker) fail(field, reason string) {
	c.errs = append(c.errs, status.FieldError{Field: field, Reason: reason})
}

// Validate returns the field errors of e in rule order: required fields,
// ranges, temporal order, enum membership, then id uniqueness. A nil result
// means e is valid.
func Validate(e *models.Event) status.ValidationErrors {
	c := &checker{}

	if !e.IsDraft() {
		c.check("title", e.Title, validation.Required)
		c.check("description", e.Description, validation.Required)
		c.check("type", e.Type, validation.Required)
		c.check("status", e.Status, validation.Required)
		c.check("startTime", e.StartTime, validation.Required)
		c.check("location.name", e.Location.Name, validation.Required)
		c.check("location.latitude", e.Location.Latitude, validation.NotNil)
		c.check("location.longitude", e.Location.Longitude, validation.NotNil)
		c.check("location.radiusMeters", e.Location.RadiusMeters, validation.NotNil)
		for i, s := range e.Specimens {
			c.check(fmt.Sprintf("specimens[%d].name", i), s.Name, validation.Required)
		}
		for i, b := range e.Badges {
			c.check(fmt.Sprintf("badges[%d].title", i), b.Title, validation.Required)
			c.check(fmt.Sprintf("badges[%d].requirement.type", i), b.Requirement.Type, validation.Required)
		}
	}

	c.check("location.latitude", e.Location.Latitude, latitudeRange...)
	c.check("location.longitude", e.Location.Longitude, longitudeRange...)
	c.check("location.radiusMeters", e.Location.RadiusMeters, positive)
	for i, b := range e.Badges {
		c.check(fmt.Sprintf("badges[%d].requirement.count", i), b.Requirement.Count, positive)
	}

	if !e.StartTime.IsZero() && !e.EndTime.IsZero() && !e.EndTime.After(e.StartTime) {
		c.fail("endTime", "must be after startTime")
	}

	c.check("type", e.Type, member)
	c.check("status", e.Status, member)
	for i, s := range e.Specimens {
		c.check(fmt.Sprintf("specimens[%d].rarity", i), s.Rarity, member)
	}
	for i, b := range e.Badges {
		c.check(fmt.Sprintf("badges[%d].requirement.type", i), b.Requirement.Type, member)
	}

	seen := make(map[string]int, len(e.Specimens))
	for i, s := range e.Specimens {
		if s.ID == "" {
			continue
		}
		if first, ok := seen[s.ID]; ok {
			c.fail(fmt.Sprintf("specimens[%d].id", i), fmt.Sprintf("duplicates specimens[%d].id %q", first, s.ID))
			continue
		}
		seen[s.ID] = i
	}
	seen = make(map[string]int, len(e.Badges))
	for i, b := range e.Badges {
		if b.ID == "" {
			continue
		}
		if first, ok := seen[b.ID]; ok {
			c.fail(fmt.Sprintf("badges[%d].id", i), fmt.Sprintf("duplicates badges[%d].id %q", first, b.ID))
			continue
		}
		seen[b.ID] = i
	}

	return c.errs
}

// ValidateCorpus validates every event and checks that event ids are unique
// across the corpus. Paths are prefixed with "events[i].".
func ValidateCorpus(corpus *models.Corpus) status.ValidationErrors {
	var errs status.ValidationErrors
	seen := make(map[string]int, len(corpus.Events))
	for i, e := range corpus.Events {
		prefix := fmt.Sprintf("events[%d].", i)
		errs = append(errs, Validate(e).Prefix(prefix)...)
		if e.ID == "" {
			continue
		}
		if first, ok := seen[e.ID]; ok {
			errs = append(errs, status.FieldError{
				Field:  prefix + "id",
				Reason: fmt.Sprintf("duplicates events[%d].id %q", first, e.ID),
			})
			continue
		}
		seen[e.ID] = i
	}
	return errs
}
