package codec

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specimenpro/internal/status"
	"specimenpro/models"
)

func museumEvent() *models.Event {
	return &models.Event{
		ID:          "e1",
		Title:       "Mineral Week",
		Description: "Specimens & stories <from> the collection",
		Type:        models.EventTypeExhibit,
		Status:      models.EventStatusActive,
		StartTime:   time.Date(2025, 11, 13, 0, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2025, 11, 20, 18, 30, 0, 0, time.UTC),
		Location: models.Location{
			Name:         "Museum",
			Latitude:     models.Float(34.0171),
			Longitude:    models.Float(-118.2889),
			RadiusMeters: models.Float(500),
		},
		Specimens: []*models.Specimen{
			{ID: "s1", Name: "Heulandite", Rarity: models.RarityRare, Composition: "(Ca,Na)₂₋₃Al₃(Al,Si)₂Si₁₃O₃₆·12H₂O"},
			{ID: "s2", Name: "Stilbite", Locality: "Pune, India", Rarity: models.RarityCommon, PhotoURL: "https://cdn.example.com/assets/images/stilbite.jpg"},
		},
		Badges: []*models.Badge{
			{ID: "b1", Title: "Collector", IconName: "star.fill", Color: "#FFD700", Requirement: models.Requirement{Type: models.RequirementCollectCount, Count: 2}},
			{ID: "b2", Title: "Regular", Color: "blue", Requirement: models.Requirement{Type: models.RequirementVisitCount, Count: 3}},
		},
	}
}

func TestMarshalEvent_RoundTrip(t *testing.T) {
	e := museumEvent()

	data, err := MarshalEvent(e)
	require.NoError(t, err)

	got, err := UnmarshalEvent(data)
	require.NoError(t, err)

	assert.Equal(t, museumEvent(), got)
}

func TestMarshalEvent_Deterministic(t *testing.T) {
	a, err := MarshalEvent(museumEvent())
	require.NoError(t, err)
	b, err := MarshalEvent(museumEvent())
	require.NoError(t, err)

	assert.Equal(t, string(a), string(b))
	assert.Contains(t, string(a), `"description": "Specimens & stories <from> the collection"`)
	assert.Contains(t, string(a), "Si₁₃O₃₆")
}

func TestMarshalEvent_NormalizesTimestamps(t *testing.T) {
	input := `{
		"id": "e1",
		"title": "Mineral Week",
		"type": "Exhibit",
		"status": "Active",
		"startTime": "2025-11-13",
		"endTime": "Thu, 20 Nov 2025 10:30:00 -0800",
		"location": {"name": "Museum", "latitude": 34.0171, "longitude": -118.2889, "radiusMeters": 500, "alwaysVisible": false},
		"specimens": [{"id": "s1", "name": "Heulandite", "rarity": "Rare"}],
		"badges": []
	}`

	e, err := UnmarshalEvent([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, models.EventTypeExhibit, e.Type)
	assert.Equal(t, models.RarityRare, e.Specimens[0].Rarity)

	data, err := MarshalEvent(e)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "2025-11-13T00:00:00Z", out["startTime"])
	assert.Equal(t, "2025-11-20T18:30:00Z", out["endTime"])
	assert.Equal(t, "exhibit", out["type"])
	assert.Equal(t, "active", out["status"])
}

func TestMarshalEvent_AssignsStableIDs(t *testing.T) {
	e := museumEvent()
	e.ID = ""
	e.Specimens = append(e.Specimens, &models.Specimen{Name: "Quartz"})
	e.Badges = append(e.Badges, &models.Badge{Title: "New"})

	first, err := MarshalEvent(e)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(e.ID, EventIDPrefix))
	assert.Len(t, e.ID, len(EventIDPrefix)+8)
	assert.True(t, strings.HasPrefix(e.Specimens[2].ID, SpecimenIDPrefix))
	assert.True(t, strings.HasPrefix(e.Badges[2].ID, BadgeIDPrefix))
	assert.Equal(t, "s1", e.Specimens[0].ID)

	second, err := MarshalEvent(e)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	decoded, err := UnmarshalEvent(first)
	require.NoError(t, err)
	again, err := MarshalEvent(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(again))
}

func TestMarshalEvent_PreservesUnknownFields(t *testing.T) {
	input := `{
		"id": "e1",
		"status": "draft",
		"sponsor": {"name": "Gem Club", "tier": 2},
		"location": {"name": "Hall", "floor": 3},
		"specimens": [{"id": "s1", "name": "Opal", "imageUrl": null, "tags": ["blue"]}],
		"badges": [{"id": "b1", "title": "T", "requirement": {"type": "time_spent", "count": 30, "unit": "minutes"}, "hidden": true}]
	}`

	e, err := UnmarshalEvent([]byte(input))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "Gem Club", "tier": 2}`, string(e.Extra["sponsor"]))
	assert.JSONEq(t, `3`, string(e.Location.Extra["floor"]))
	assert.JSONEq(t, `["blue"]`, string(e.Specimens[0].Extra["tags"]))
	assert.JSONEq(t, `"minutes"`, string(e.Badges[0].Requirement.Extra["unit"]))

	data, err := MarshalEvent(e)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, map[string]interface{}{"name": "Gem Club", "tier": float64(2)}, out["sponsor"])
	specimen := out["specimens"].([]interface{})[0].(map[string]interface{})
	assert.Contains(t, specimen, "imageUrl")
	assert.Nil(t, specimen["imageUrl"])
	badge := out["badges"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, true, badge["hidden"])
	assert.Equal(t, "minutes", badge["requirement"].(map[string]interface{})["unit"])
}

func TestUnmarshalEvent_LegacyFields(t *testing.T) {
	input := `{
		"id": "event-1a2b3c4d",
		"title": "Hunt",
		"description": "Find them all",
		"startDate": "2025-01-05T00:00:00Z",
		"endDate": "2025-01-05T23:59:59Z",
		"status": "upcoming",
		"type": "scavenger_hunt",
		"location": "Science Center",
		"imageUrl": null,
		"specimens": [{"id": "spec-1", "name": "Pyrite", "locality": "Spain", "audioNoteUrl": "assets/audio/pyrite.m4a"}],
		"badges": [{"id": "badge-1", "title": "First", "description": "d", "icon": "star.fill", "color": "gold", "requirement": 1, "requirementType": "collect_count"}]
	}`

	e, err := UnmarshalEvent([]byte(input))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 1, 5, 23, 59, 59, 0, time.UTC), e.EndTime)
	assert.Equal(t, models.EventTypeScavengerHunt, e.Type)
	assert.Equal(t, "Science Center", e.Location.Name)
	assert.Equal(t, "assets/audio/pyrite.m4a", e.Specimens[0].AudioURL)
	assert.Equal(t, "star.fill", e.Badges[0].IconName)
	assert.Equal(t, models.Requirement{Type: models.RequirementCollectCount, Count: 1}, e.Badges[0].Requirement)
	assert.Nil(t, e.Extra)
	assert.Nil(t, e.Specimens[0].Extra)
	assert.Nil(t, e.Badges[0].Extra)
}

func TestUnmarshalEvent_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{"not an object", `[1, 2]`, "$"},
		{"bad json", `{"id": `, "$"},
		{"specimens not a list", `{"id": "e1", "specimens": {"id": "s1"}}`, "specimens"},
		{"badges not a list", `{"id": "e1", "badges": "none"}`, "badges"},
		{"bad start", `{"id": "e1", "startTime": "next tuesday"}`, "startTime"},
		{"bad legacy end", `{"id": "e1", "endDate": "2025-13-45"}`, "endTime"},
		{"unknown type", `{"id": "e1", "type": "concert"}`, "type"},
		{"unknown rarity", `{"id": "e1", "specimens": [{"id": "s1", "rarity": "mythic"}]}`, "specimens[0].rarity"},
		{"unknown requirement", `{"id": "e1", "badges": [{"id": "b1", "requirement": {"type": "scan_specific", "count": 1}}]}`, "badges[0].requirement.type"},
		{"latitude as text", `{"id": "e1", "location": {"latitude": "34.0"}}`, "location.latitude"},
		{"specimen not object", `{"id": "e1", "specimens": ["s1"]}`, "specimens[0]"},
		{"title not string", `{"id": "e1", "title": 7}`, "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalEvent([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, status.ErrMalformedRecord))

			var mr *status.MalformedRecordError
			require.True(t, errors.As(err, &mr))
			assert.Equal(t, tt.field, mr.Field)
		})
	}
}

func TestUnmarshalEvent_EmptyTimestampIsAbsent(t *testing.T) {
	e, err := UnmarshalEvent([]byte(`{"id": "e1", "startTime": "", "endTime": null}`))
	require.NoError(t, err)

	assert.True(t, e.StartTime.IsZero())
	assert.True(t, e.EndTime.IsZero())
}

func TestMarshalEvent_InvalidEnumIsMalformed(t *testing.T) {
	e := museumEvent()
	e.Specimens[1].Rarity = models.Rarity(12)

	_, err := MarshalEvent(e)

	var mr *status.MalformedRecordError
	require.True(t, errors.As(err, &mr))
	assert.Equal(t, "specimens[1].rarity", mr.Field)
}

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 11, 13, 17, 5, 0, 0, time.UTC)
	for _, in := range []string{
		"Thu, 13 Nov 2025 17:05:00 +0000",
		"Thu, 13 Nov 2025 09:05:00 -0800",
		"Thu, 13 Nov 2025 17:05:00 GMT",
		"2025-11-13T17:05:00Z",
		"2025-11-13T19:05:00+02:00",
		"2025-11-13T17:05:00",
		"2025-11-13 17:05:00",
	} {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %s", in, got)
		assert.Equal(t, time.UTC, got.Location(), in)
	}

	day, err := ParseTime("2025-11-13")
	require.NoError(t, err)
	assert.Equal(t, "2025-11-13T00:00:00Z", FormatTime(day))

	for _, in := range []string{"2025-11-13T", "13/11/2025", "2025-11-13 extra", ""} {
		_, err := ParseTime(in)
		assert.Error(t, err, in)
	}
}

func TestParseTime_RFC2822Zones(t *testing.T) {
	// A local zone that also calls itself EST must not leak into parsing.
	local := time.Local
	time.Local = time.FixedZone("EST", 10*60*60)
	t.Cleanup(func() { time.Local = local })

	for in, want := range map[string]string{
		"Thu, 13 Nov 2025 10:00:00 EST": "2025-11-13T15:00:00Z",
		"Thu, 13 Nov 2025 10:00:00 EDT": "2025-11-13T14:00:00Z",
		"Thu, 13 Nov 2025 10:00:00 CST": "2025-11-13T16:00:00Z",
		"Thu, 13 Nov 2025 10:00:00 MDT": "2025-11-13T16:00:00Z",
		"Thu, 13 Nov 2025 10:00:00 PST": "2025-11-13T18:00:00Z",
		"Thu, 13 Nov 2025 10:00:00 pst": "2025-11-13T18:00:00Z",
		"Thu, 13 Nov 2025 10:00:00 UT":  "2025-11-13T10:00:00Z",
		"13 Nov 2025 10:00:00 GMT":      "2025-11-13T10:00:00Z",
		"Thu, 13 Nov 2025 10:00 -0500":  "2025-11-13T15:00:00Z",
		"13 Nov 2025 10:00 -0500":       "2025-11-13T15:00:00Z",
		"Thu, 13 Nov 2025 10:00 EST":    "2025-11-13T15:00:00Z",
		"2025-11-13T10:00:00+0100":      "2025-11-13T09:00:00Z",
		"2025-11-13T10:00:00.5-0130":    "2025-11-13T11:30:00.5Z",
	} {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, FormatTime(got), in)
	}

	for _, in := range []string{
		"Thu, 13 Nov 2025 10:00:00 CET",
		"Thu, 13 Nov 2025 10:00:00 XYZ",
		"Thu, 13 Nov 2025 10:00:00 AEST",
	} {
		_, err := ParseTime(in)
		assert.Error(t, err, in)
	}
}
