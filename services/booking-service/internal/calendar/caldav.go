package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-webdav/caldav"

	"github.com/portfolio-site/meetbook/services/booking-service/internal/availability"
)

// CalDAVSource queries a CalDAV server with a time-range filter.
type CalDAVSource struct {
	name      string
	url       string
	calendars []string
	loc       *time.Location
	logger    *slog.Logger
	client    *http.Client
}

func NewCalDAVSource(name, url, username, password string, calendars []string, loc *time.Location, logger *slog.Logger, base http.RoundTripper) *CalDAVSource {
	if base == nil {
		base = http.DefaultTransport
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CalDAVSource{
		name:      name,
		url:       url,
		calendars: calendars,
		loc:       loc,
		logger:    logger,
		client: &http.Client{
			Timeout:   60 * time.Second,
			Transport: &basicAuthTransport{username: username, password: password, base: base},
		},
	}
}

func (s *CalDAVSource) Name() string { return s.name }

func (s *CalDAVSource) Busy(ctx context.Context, start, end time.Time) ([]availability.BusyInterval, error) {
	client, err := caldav.NewClient(s.client, s.url)
	if err != nil {
		return nil, fmt.Errorf("create caldav client: %w", err)
	}
	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}
	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find calendar home: %w", err)
	}
	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	var out []availability.BusyInterval
	queried := 0
	for _, cal := range cals {
		if !s.wants(cal.Name) {
			continue
		}
		queried++
		objects, err := client.QueryCalendar(ctx, cal.Path, timeRangeQuery(start, end))
		if err != nil {
			return nil, fmt.Errorf("query calendar %s: %w", cal.Name, err)
		}
		for _, obj := range objects {
			if obj.Data == nil {
				continue
			}
			out = append(out, busyFromCalendar(obj.Data, s.name+"/"+cal.Name, start, end, s.loc)...)
		}
	}
	if queried == 0 {
		s.logger.Warn("caldav source matched no calendars", "source", s.name, "wanted", s.calendars)
	}
	sortByStart(out)
	return out, nil
}

func (s *CalDAVSource) wants(name string) bool {
	if len(s.calendars) == 0 {
		return true
	}
	for _, c := range s.calendars {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

func timeRangeQuery(start, end time.Time) *caldav.CalendarQuery {
	return &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: "VCALENDAR",
			Comps: []caldav.CalendarCompRequest{{
				Name:  "VEVENT",
				Props: []string{"SUMMARY", "DTSTART", "DTEND", "DURATION", "RRULE", "RDATE", "EXDATE", "STATUS", "TRANSP", "UID"},
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: start,
				End:   end,
			}},
		},
	}
}

type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.username != "" {
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.username, t.password)
	}
	return t.base.RoundTrip(req)
}
