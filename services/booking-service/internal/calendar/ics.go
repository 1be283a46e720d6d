package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ics "github.com/emersion/go-ical"

	"github.com/portfolio-site/meetbook/services/booking-service/internal/availability"
)

// ICSSource reads busy time from an iCal feed URL.
type ICSSource struct {
	name     string
	url      string
	username string
	password string
	loc      *time.Location
	client   *http.Client
}

func NewICSSource(name, url, username, password string, loc *time.Location, client *http.Client) *ICSSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ICSSource{name: name, url: url, username: username, password: password, loc: loc, client: client}
}

func (s *ICSSource) Name() string { return s.name }

func (s *ICSSource) Busy(ctx context.Context, start, end time.Time) ([]availability.BusyInterval, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.username != "" && s.password != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ics %s: %w", s.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch ics %s: status %d", s.name, resp.StatusCode)
	}
	return ParseBusy(resp.Body, s.name, start, end, s.loc)
}

// ParseBusy decodes every calendar in r and returns the event occurrences that
// overlap [start, end). Floating and date-only values are read in loc.
func ParseBusy(r io.Reader, source string, start, end time.Time, loc *time.Location) ([]availability.BusyInterval, error) {
	dec := ics.NewDecoder(r)
	var out []availability.BusyInterval
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode ics: %w", err)
		}
		out = append(out, busyFromCalendar(cal, source, start, end, loc)...)
	}
	sortByStart(out)
	return out, nil
}

func busyFromCalendar(cal *ics.Calendar, source string, start, end time.Time, loc *time.Location) []availability.BusyInterval {
	var out []availability.BusyInterval
	for _, comp := range cal.Children {
		if comp.Name != ics.CompEvent {
			continue
		}
		occ, err := eventOccurrences(comp, source, start, end, loc)
		if err != nil {
			// unparseable events never block time
			continue
		}
		out = append(out, occ...)
	}
	return out
}

func eventOccurrences(comp *ics.Component, source string, start, end time.Time, loc *time.Location) ([]availability.BusyInterval, error) {
	if prop := comp.Props.Get(ics.PropStatus); prop != nil && strings.EqualFold(prop.Value, "CANCELLED") {
		return nil, nil
	}

	base := availability.BusyInterval{Busy: true, Source: source}
	if prop := comp.Props.Get(ics.PropSummary); prop != nil {
		base.Summary = prop.Value
	}
	if prop := comp.Props.Get(ics.PropTransparency); prop != nil && strings.EqualFold(prop.Value, "TRANSPARENT") {
		base.Busy = false
	}

	dtstart := comp.Props.Get(ics.PropDateTimeStart)
	if dtstart == nil {
		return nil, errors.New("event without DTSTART")
	}
	first, allDay, err := propTime(dtstart, loc)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}

	var length time.Duration
	switch {
	case comp.Props.Get(ics.PropDateTimeEnd) != nil:
		last, _, err := propTime(comp.Props.Get(ics.PropDateTimeEnd), loc)
		if err != nil {
			return nil, fmt.Errorf("parse end: %w", err)
		}
		length = last.Sub(first)
	case comp.Props.Get(ics.PropDuration) != nil:
		length, err = comp.Props.Get(ics.PropDuration).Duration()
		if err != nil {
			return nil, fmt.Errorf("parse duration: %w", err)
		}
	case allDay:
		length = 24 * time.Hour
	}
	if length <= 0 {
		// zero-length events occupy no time
		return nil, nil
	}

	rset, err := comp.RecurrenceSet(loc)
	if err != nil {
		return nil, fmt.Errorf("parse recurrence: %w", err)
	}
	if rset == nil {
		b := base
		b.Start, b.End = first, first.Add(length)
		if !overlaps(b, start, end) {
			return nil, nil
		}
		return []availability.BusyInterval{b}, nil
	}

	var out []availability.BusyInterval
	// Look back by one event length to catch occurrences already running at start.
	for _, at := range rset.Between(start.Add(-length), end, true) {
		b := base
		b.Start, b.End = at, at.Add(length)
		if overlaps(b, start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func propTime(prop *ics.Prop, loc *time.Location) (time.Time, bool, error) {
	if prop.ValueType() == ics.ValueDate {
		t, err := time.ParseInLocation("20060102", prop.Value, loc)
		return t, true, err
	}
	t, err := prop.DateTime(loc)
	if err == nil {
		return t, false, nil
	}
	if d, derr := time.ParseInLocation("20060102", prop.Value, loc); derr == nil {
		return d, true, nil
	}
	return time.Time{}, false, err
}
