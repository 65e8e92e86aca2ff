package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// DateLayout is the calendar date layout accepted alongside RFC 3339 timestamps.
const DateLayout = "2006-01-02"

var errInvalidDate = errors.New("invalid date")

// FlexDate is an optional date that decodes from either a calendar date
// ("2006-01-02") or an ISO 8601 timestamp. Null and the empty string leave it
// unset. Unparseable input does not fail decoding; it is kept so the
// validator can report it next to every other field problem.
type FlexDate struct {
	Time  time.Time
	Valid bool
	raw   string
}

// NewFlexDate wraps t as a set date.
func NewFlexDate(t time.Time) FlexDate {
	return FlexDate{Time: t.UTC(), Valid: true}
}

// ParseFlexDate parses the date forms clients send.
func ParseFlexDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, DateLayout, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errInvalidDate
}

// IsZero reports whether the date is unset. It lets `omitzero` drop unset dates.
func (d FlexDate) IsZero() bool {
	return !d.Valid && d.raw == ""
}

// Invalid reports whether the decoded input was present but not a date.
func (d FlexDate) Invalid() bool {
	return !d.Valid && d.raw != ""
}

// Raw returns the rejected input of an invalid date.
func (d FlexDate) Raw() string {
	return d.raw
}

// Ptr returns the date as a pointer, nil when unset.
func (d FlexDate) Ptr() *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}

func (d *FlexDate) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = FlexDate{}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	s = strings.TrimSpace(s)
	if s == "" {
		*d = FlexDate{}
		return nil
	}

	t, err := ParseFlexDate(s)
	if err != nil {
		*d = FlexDate{raw: s}
		return nil
	}
	*d = FlexDate{Time: t, Valid: true}
	return nil
}

func (d FlexDate) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}
