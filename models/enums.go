package models

import (
	"fmt"
	"strings"
)

// EventType is the kind of activity an event describes. The zero value means
// the field was never set.
type EventType int

const (
	EventTypeUnset EventType = iota
	EventTypeExhibit
	EventTypeScavengerHunt
	EventTypeCompetition
	EventTypeWorkshop
)

var eventTypeNames = map[EventType]string{
	EventTypeExhibit:       "exhibit",
	EventTypeScavengerHunt: "scavenger_hunt",
	EventTypeCompetition:   "competition",
	EventTypeWorkshop:      "workshop",
}

func ParseEventType(s string) (EventType, error) {
	v, err := parseEnum(s, eventTypeNames)
	if err != nil {
		return EventTypeUnset, fmt.Errorf("unknown event type %q", s)
	}
	return v, nil
}

func (t EventType) IsSet() bool { return t != EventTypeUnset }
func (t EventType) IsValid() bool { return eventTypeNames[t] != "" }
func (t EventType) String() string {
	return enumString(t, eventTypeNames)
}

func (t EventType) MarshalText() ([]byte, error) {
	return marshalEnum(t, eventTypeNames, "event type")
}

func (t *EventType) UnmarshalText(b []byte) (err error) {
	*t, err = ParseEventType(string(b))
	return err
}

// EventStatus is the lifecycle state of an event. Draft events are allowed
// to be incomplete.
type EventStatus int

const (
	EventStatusUnset EventStatus = iota
	EventStatusDraft
	EventStatusUpcoming
	EventStatusActive
	EventStatusEnded
)

var eventStatusNames = map[EventStatus]string{
	EventStatusDraft:    "draft",
	EventStatusUpcoming: "upcoming",
	EventStatusActive:   "active",
	EventStatusEnded:    "ended",
}

func ParseEventStatus(s string) (EventStatus, error) {
	v, err := parseEnum(s, eventStatusNames)
	if err != nil {
		return EventStatusUnset, fmt.Errorf("unknown event status %q", s)
	}
	return v, nil
}

func (s EventStatus) IsSet() bool { return s != EventStatusUnset }
func (s EventStatus) IsValid() bool { return eventStatusNames[s] != "" }
func (s EventStatus) String() string {
	return enumString(s, eventStatusNames)
}

func (s EventStatus) MarshalText() ([]byte, error) {
	return marshalEnum(s, eventStatusNames, "event status")
}

func (s *EventStatus) UnmarshalText(b []byte) (err error) {
	*s, err = ParseEventStatus(string(b))
	return err
}

type Rarity int

const (
	RarityUnset Rarity = iota
	RarityCommon
	RarityUncommon
	RarityRare
	RarityLegendary
)

var rarityNames = map[Rarity]string{
	RarityCommon:    "common",
	RarityUncommon:  "uncommon",
	RarityRare:      "rare",
	RarityLegendary: "legendary",
}

func ParseRarity(s string) (Rarity, error) {
	v, err := parseEnum(s, rarityNames)
	if err != nil {
		return RarityUnset, fmt.Errorf("unknown rarity %q", s)
	}
	return v, nil
}

func (r Rarity) IsSet() bool { return r != RarityUnset }
func (r Rarity) IsValid() bool { return rarityNames[r] != "" }
func (r Rarity) String() string {
	return enumString(r, rarityNames)
}

func (r Rarity) MarshalText() ([]byte, error) {
	return marshalEnum(r, rarityNames, "rarity")
}

func (r *Rarity) UnmarshalText(b []byte) (err error) {
	*r, err = ParseRarity(string(b))
	return err
}

// RequirementType says what a badge counts.
type RequirementType int

const (
	RequirementUnset RequirementType = iota
	RequirementCollectCount
	RequirementVisitCount
	RequirementTimeSpent
)

var requirementTypeNames = map[RequirementType]string{
	RequirementCollectCount: "collect_count",
	RequirementVisitCount:   "visit_count",
	RequirementTimeSpent:    "time_spent",
}

func ParseRequirementType(s string) (RequirementType, error) {
	v, err := parseEnum(s, requirementTypeNames)
	if err != nil {
		return RequirementUnset, fmt.Errorf("unknown requirement type %q", s)
	}
	return v, nil
}

func (r RequirementType) IsSet() bool { return r != RequirementUnset }
func (r RequirementType) IsValid() bool { return requirementTypeNames[r] != "" }
func (r RequirementType) String() string {
	return enumString(r, requirementTypeNames)
}

func (r RequirementType) MarshalText() ([]byte, error) {
	return marshalEnum(r, requirementTypeNames, "requirement type")
}

func (r *RequirementType) UnmarshalText(b []byte) (err error) {
	*r, err = ParseRequirementType(string(b))
	return err
}

// foldName lowers s and drops separators so "ScavengerHunt",
// "scavenger_hunt" and "Scavenger-Hunt" compare equal.
func foldName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r == '_' || r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func parseEnum[T comparable](s string, names map[T]string) (T, error) {
	var zero T
	want := foldName(s)
	if want == "" {
		return zero, fmt.Errorf("empty value")
	}
	for v, name := range names {
		if foldName(name) == want {
			return v, nil
		}
	}
	return zero, fmt.Errorf("unknown value %q", s)
}

func enumString[T ~int](v T, names map[T]string) string {
	if name, ok := names[v]; ok {
		return name
	}
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("invalid(%d)", int(v))
}

func marshalEnum[T ~int](v T, names map[T]string, what string) ([]byte, error) {
	name, ok := names[v]
	if !ok {
		return nil, fmt.Errorf("cannot encode %s %d", what, int(v))
	}
	return []byte(name), nil
}
