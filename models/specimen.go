package models

import "encoding/json"

// Specimen is a collectible item. It only exists inside its parent Event.
type Specimen struct {
	ID          string
	Name        string
	Locality    string
	Description string
	Rarity      Rarity
	Composition string // chemical formula, may contain Unicode sub/superscripts
	FunFacts    string
	Story       string
	PhotoURL    string
	AudioURL    string

	Extra map[string]json.RawMessage
}

type Badge struct {
	ID          string
	Title       string
	Description string
	IconName    string
	Color       string
	Requirement Requirement

	Extra map[string]json.RawMessage
}

type Requirement struct {
	Type  RequirementType
	Count int

	Extra map[string]json.RawMessage
}
