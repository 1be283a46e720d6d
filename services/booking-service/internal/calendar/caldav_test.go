package calendar

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ics "github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

const (
	davPrincipal = "/alice/"
	davHome      = "/alice/calendars/"
)

func davEvent(uid, summary, extra, start, end string) string {
	return "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//test//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:" + uid + "\r\nDTSTAMP:20240101T000000Z\r\nSUMMARY:" + summary + "\r\n" + extra +
		"DTSTART:" + start + "\r\nDTEND:" + end + "\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
}

// memBackend is a read-only caldav.Backend over a fixed set of calendars.
type memBackend struct {
	calendars []caldav.Calendar
	objects   map[string][]caldav.CalendarObject

	mu      sync.Mutex
	queried []string
}

func newMemBackend(t *testing.T, cals map[string][]string) *memBackend {
	t.Helper()
	b := &memBackend{objects: map[string][]caldav.CalendarObject{}}
	for name, events := range cals {
		p := davHome + strings.ToLower(name) + "/"
		b.calendars = append(b.calendars, caldav.Calendar{Path: p, Name: name})
		for i, raw := range events {
			data, err := ics.NewDecoder(strings.NewReader(raw)).Decode()
			if err != nil {
				t.Fatalf("decode event %d of %s: %v", i, name, err)
			}
			b.objects[p] = append(b.objects[p], caldav.CalendarObject{
				Path:    p + string(rune('a'+i)) + ".ics",
				ModTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				ETag:    name + string(rune('a'+i)),
				Data:    data,
			})
		}
	}
	return b
}

func (b *memBackend) CurrentUserPrincipal(context.Context) (string, error) { return davPrincipal, nil }
func (b *memBackend) CalendarHomeSetPath(context.Context) (string, error)  { return davHome, nil }

func (b *memBackend) CreateCalendar(context.Context, *caldav.Calendar) error {
	return http.ErrNotSupported
}

func (b *memBackend) ListCalendars(context.Context) ([]caldav.Calendar, error) {
	return b.calendars, nil
}

func (b *memBackend) GetCalendar(_ context.Context, path string) (*caldav.Calendar, error) {
	for i := range b.calendars {
		if b.calendars[i].Path == path {
			return &b.calendars[i], nil
		}
	}
	return nil, http.ErrMissingFile
}

func (b *memBackend) GetCalendarObject(_ context.Context, path string, _ *caldav.CalendarCompRequest) (*caldav.CalendarObject, error) {
	for _, objs := range b.objects {
		for i := range objs {
			if objs[i].Path == path {
				return &objs[i], nil
			}
		}
	}
	return nil, http.ErrMissingFile
}

func (b *memBackend) ListCalendarObjects(_ context.Context, path string, _ *caldav.CalendarCompRequest) ([]caldav.CalendarObject, error) {
	return b.objects[path], nil
}

func (b *memBackend) QueryCalendarObjects(_ context.Context, path string, query *caldav.CalendarQuery) ([]caldav.CalendarObject, error) {
	b.mu.Lock()
	b.queried = append(b.queried, path)
	b.mu.Unlock()
	return caldav.Filter(query, b.objects[path])
}

func (b *memBackend) PutCalendarObject(context.Context, string, *ics.Calendar, *caldav.PutCalendarObjectOptions) (*caldav.CalendarObject, error) {
	return nil, http.ErrNotSupported
}

func (b *memBackend) DeleteCalendarObject(context.Context, string) error {
	return http.ErrNotSupported
}

func (b *memBackend) queriedPaths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.queried...)
}

func newDAVServer(t *testing.T) (*memBackend, *httptest.Server) {
	t.Helper()
	backend := newMemBackend(t, map[string][]string{
		"Work": {
			davEvent("review", "Design review", "", "20240102T170000Z", "20240102T180000Z"),
			davEvent("focus", "Focus time", "TRANSP:TRANSPARENT\r\n", "20240102T180000Z", "20240102T200000Z"),
			davEvent("dropped", "Cancelled sync", "STATUS:CANCELLED\r\n", "20240103T190000Z", "20240103T193000Z"),
			davEvent("later", "Next month", "", "20240210T100000Z", "20240210T110000Z"),
		},
		"Personal": {
			davEvent("dentist", "Dentist", "", "20240102T150000Z", "20240102T160000Z"),
		},
	})
	srv := httptest.NewServer(&caldav.Handler{Backend: backend})
	t.Cleanup(srv.Close)
	return backend, srv
}

func TestCalDAVSourceBusy(t *testing.T) {
	backend, srv := newDAVServer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := NewCalDAVSource("dav", srv.URL, "", "", []string{"work"}, time.UTC, logger, nil)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	got, err := src.Busy(context.Background(), start, end)
	if err != nil {
		t.Fatalf("busy: %v", err)
	}

	if q := backend.queriedPaths(); len(q) != 1 || q[0] != davHome+"work/" {
		t.Fatalf("expected only the work calendar queried, got %v", q)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 intervals, got %+v", got)
	}
	for _, b := range got {
		if b.Source != "dav/Work" {
			t.Fatalf("unexpected source %q", b.Source)
		}
	}
	review, focus := got[0], got[1]
	if review.Summary != "Design review" || !review.Busy {
		t.Fatalf("bad review interval %+v", review)
	}
	if !review.Start.Equal(time.Date(2024, 1, 2, 17, 0, 0, 0, time.UTC)) || review.End.Sub(review.Start) != time.Hour {
		t.Fatalf("bad review times %v-%v", review.Start, review.End)
	}
	if focus.Summary != "Focus time" || focus.Busy {
		t.Fatalf("transparent event must not be busy: %+v", focus)
	}
}

func TestCalDAVSourceAllCalendars(t *testing.T) {
	backend, srv := newDAVServer(t)
	src := NewCalDAVSource("dav", srv.URL, "", "", nil, time.UTC, nil, nil)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	got, err := src.Busy(context.Background(), start, end)
	if err != nil {
		t.Fatalf("busy: %v", err)
	}
	if q := backend.queriedPaths(); len(q) != 2 {
		t.Fatalf("expected both calendars queried, got %v", q)
	}
	if len(got) != 3 || got[0].Summary != "Dentist" || got[0].Source != "dav/Personal" {
		t.Fatalf("unexpected intervals %+v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Start.Before(got[i-1].Start) {
			t.Fatalf("intervals not sorted")
		}
	}
}

func TestCalDAVSourceNoMatchingCalendar(t *testing.T) {
	backend, srv := newDAVServer(t)
	src := NewCalDAVSource("dav", srv.URL, "", "", []string{"holidays"}, time.UTC, nil, nil)

	got, err := src.Busy(context.Background(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("busy: %v", err)
	}
	if len(got) != 0 || len(backend.queriedPaths()) != 0 {
		t.Fatalf("expected nothing queried, got %+v", got)
	}
}
