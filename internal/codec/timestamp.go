package codec

import (
	"fmt"
	"strings"
	"time"
)

// CanonicalTimeLayout is the only layout written to canonical documents.
// Values are always converted to UTC first, so the zone renders as "Z", and
// a zero fraction is omitted ("2025-11-13T00:00:00Z").
const CanonicalTimeLayout = time.RFC3339Nano

// timeLayouts is tried in order. A layout either consumes the whole input or
// is rejected; the first full match wins. Inputs without a zone are UTC.
// RFC 2822 zone names are rewritten to offsets before the chain runs, so no
// layout here parses a zone abbreviation.
var timeLayouts = []string{
	// RFC 2822 style
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04 -0700",
	time.RFC822Z,
	// ISO 8601
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	// bare date
	time.DateOnly,
}

// rfc2822Zones holds the zone names RFC 5322 section 4.3 allows. time.Parse
// resolves names against the local zone database and silently reads unknown
// ones as +0000, so names are never handed to it.
var rfc2822Zones = map[string]string{
	"UT":  "+0000",
	"GMT": "+0000",
	"EST": "-0500",
	"EDT": "-0400",
	"CST": "-0600",
	"CDT": "-0500",
	"MST": "-0700",
	"MDT": "-0600",
	"PST": "-0800",
	"PDT": "-0700",
}

// ParseTime parses a timestamp in any accepted layout and returns it in UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	in, err := numericZone(s)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, in); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// numericZone replaces a trailing alphabetic zone name with its offset.
func numericZone(s string) (string, error) {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 || !isLetters(s[i+1:]) {
		return s, nil
	}
	name := s[i+1:]
	offset, ok := rfc2822Zones[strings.ToUpper(name)]
	if !ok {
		return "", fmt.Errorf("unrecognized time zone %q in timestamp %q", name, s)
	}
	return s[:i+1] + offset, nil
}

func isLetters(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i] | 0x20
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(CanonicalTimeLayout)
}
