// Package qr builds the deep links printed as QR codes next to specimens.
//
// The app matches the scanned link against the ids in the event JSON byte
// for byte, so ids are used verbatim: no trimming, case folding or percent
// encoding. An id that cannot appear verbatim in the link is rejected.
package qr

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode"

	qrcode "github.com/skip2/go-qrcode"

	"specimenpro/internal/status"
	"specimenpro/models"
)

const (
	Scheme = "specimenpro://"

	DefaultImageSize = 512
)

// Entry pairs a specimen with its payload.
type Entry struct {
	Specimen *models.Specimen
	Payload  string
}

// EncodePayload returns "specimenpro://event/<eventID>/specimen/<specimenID>".
func EncodePayload(eventID, specimenID string) (string, error) {
	if err := checkID("eventId", eventID); err != nil {
		return "", err
	}
	if err := checkID("specimenId", specimenID); err != nil {
		return "", err
	}
	return Scheme + "event/" + eventID + "/specimen/" + specimenID, nil
}

func checkID(field, id string) error {
	if id == "" {
		return &status.InvalidIdentifierError{Field: field, Value: id, Reason: "empty"}
	}
	for _, r := range id {
		switch {
		case r == '/':
			return &status.InvalidIdentifierError{Field: field, Value: id, Reason: "contains '/'"}
		case r == '?' || r == '#':
			return &status.InvalidIdentifierError{Field: field, Value: id, Reason: fmt.Sprintf("contains %q", r)}
		case unicode.IsSpace(r):
			return &status.InvalidIdentifierError{Field: field, Value: id, Reason: "contains whitespace"}
		case unicode.IsControl(r):
			return &status.InvalidIdentifierError{Field: field, Value: id, Reason: "contains a control character"}
		}
	}
	return nil
}

// EncodeAll returns one entry per specimen, in specimen order. Specimens
// without photo or audio are included; the payload only depends on ids.
func EncodeAll(e *models.Event) ([]Entry, error) {
	entries := make([]Entry, 0, len(e.Specimens))
	for _, s := range e.Specimens {
		payload, err := EncodePayload(e.ID, s.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Specimen: s, Payload: payload})
	}
	return entries, nil
}

// FileName is the image name for a specimen's code.
func FileName(eventID, specimenID string) string {
	return eventID + "_" + specimenID + ".png"
}

// WritePNGs renders every payload of e into dir as <eventId>_<specimenId>.png
// and returns the written paths in specimen order. All payloads are encoded
// before the first file is written.
func WritePNGs(e *models.Event, dir string, size int) ([]string, error) {
	entries, err := EncodeAll(e)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultImageSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create qr directory: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		path := filepath.Join(dir, FileName(e.ID, entry.Specimen.ID))
		if err := qrcode.WriteFile(entry.Payload, qrcode.Medium, size, path); err != nil {
			return paths, fmt.Errorf("write qr for specimen %s: %w", entry.Specimen.ID, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
