package guide

import (
	"regexp"
	"time"
)

// Timestamp is an XMLTV programme time. The wire form is 14 digits
// (YYYYMMDDHHMMSS) with an optional trailing signed 4-digit zone offset; the
// zone is ignored for comparison purposes, matching how the target players
// compare schedule times.
type Timestamp struct {
	t time.Time
}

var timestampRx = regexp.MustCompile(`^(\d{14})\s*([+-]\d{4})?`)

// ParseTimestamp parses an XMLTV datetime string. ok is false when the text
// does not carry a valid 14-digit prefix.
func ParseTimestamp(s string) (Timestamp, bool) {
	m := timestampRx.FindStringSubmatch(s)
	if m == nil {
		return Timestamp{}, false
	}
	t, err := time.Parse("20060102150405", m[1])
	if err != nil {
		return Timestamp{}, false
	}
	return Timestamp{t: t}, true
}

// Before reports whether ts is strictly before other.
func (ts Timestamp) Before(other Timestamp) bool { return ts.t.Before(other.t) }

// After reports whether ts is strictly after other.
func (ts Timestamp) After(other Timestamp) bool { return ts.t.After(other.t) }

// Equal reports whether ts and other denote the same instant.
func (ts Timestamp) Equal(other Timestamp) bool { return ts.t.Equal(other.t) }

// Time returns the underlying zone-less time.
func (ts Timestamp) Time() time.Time { return ts.t }

func (ts Timestamp) String() string { return ts.t.Format("20060102150405") }

// MarshalJSON emits the wire form.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + ts.String() + `"`), nil
}

// UnmarshalJSON accepts the wire form.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, ok := ParseTimestamp(s)
	if !ok {
		return &time.ParseError{Layout: "20060102150405", Value: s}
	}
	*ts = parsed
	return nil
}
