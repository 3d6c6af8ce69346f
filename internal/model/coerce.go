package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// The API has been served by several backends over time and the same field
// arrives as a number, a numeric string or null. These scalar types absorb
// that at decode time so the exported structs stay plain.

type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s, err := scalar(b)
	if err != nil {
		return err
	}
	if s == "" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	*n = number(f)
	return nil
}

func (n number) int() int { return int(math.Round(float64(n))) }

type text string

func (t *text) UnmarshalJSON(b []byte) error {
	s, err := scalar(b)
	if err != nil {
		return err
	}
	*t = text(s)
	return nil
}

func (t text) int64() int64 {
	v, err := strconv.ParseInt(string(t), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func (t text) numeric() bool {
	_, err := strconv.ParseInt(string(t), 10, 64)
	return err == nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

type timestamp time.Time

func (ts *timestamp) UnmarshalJSON(b []byte) error {
	s, err := scalar(b)
	if err != nil {
		return err
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	*ts = timestamp(t)
	return nil
}

// ParseDate accepts RFC3339 timestamps and plain YYYY-MM-DD dates. An empty
// string is the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// scalar unwraps a JSON string, number, bool or null into its text form.
func scalar(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		return "", nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	case b[0] == '{' || b[0] == '[':
		return "", fmt.Errorf("expected scalar, got %s", b[:1])
	default:
		return string(b), nil
	}
}

func firstText(vals ...text) string {
	for _, v := range vals {
		if v != "" {
			return string(v)
		}
	}
	return ""
}
