package availability

import (
	"fmt"
	"strings"
	"time"
)

// LocalLayout is the wall-clock format used on the wire, without an offset.
const LocalLayout = "2006-01-02T15:04:05"

func FormatLocal(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(LocalLayout)
}

// ParseLocal accepts LocalLayout (interpreted in loc), RFC 3339, or a bare
// YYYY-MM-DD date meaning local midnight.
func ParseLocal(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(LocalLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	if t, err := time.ParseInLocation(DayLayout, s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q: want %s, RFC 3339 or %s", s, LocalLayout, DayLayout)
}
