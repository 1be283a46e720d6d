package calendar

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/portfolio-site/meetbook/services/booking-service/internal/availability"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/model"
)

type failingSource struct {
	name string
	err  error
}

func (f failingSource) Name() string { return f.name }

func (f failingSource) Busy(context.Context, time.Time, time.Time) ([]availability.BusyInterval, error) {
	return nil, f.err
}

type slowSource struct{}

func (slowSource) Name() string { return "slow" }

func (slowSource) Busy(ctx context.Context, _, _ time.Time) ([]availability.BusyInterval, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

var (
	rangeStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
)

func interval(day, hour int) availability.BusyInterval {
	s := time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC)
	return availability.BusyInterval{Start: s, End: s.Add(time.Hour), Busy: true}
}

func TestMultiMergesAndSkipsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	m := NewMulti(logger, []Source{
		Static{SourceName: "a", Intervals: []availability.BusyInterval{interval(3, 9)}},
		failingSource{name: "broken", err: errors.New("boom")},
		Static{SourceName: "b", Intervals: []availability.BusyInterval{interval(2, 9), interval(20, 9)}},
	})

	got, err := m.Busy(context.Background(), rangeStart, rangeEnd)
	if err != nil {
		t.Fatalf("busy: %v", err)
	}
	if len(got) != 2 || got[0].Source != "b" || got[1].Source != "a" {
		t.Fatalf("unexpected merge %+v", got)
	}
	if !strings.Contains(buf.String(), `"source":"broken"`) {
		t.Fatalf("expected failure to be logged, got %s", buf.String())
	}
}

func TestMultiAllFailed(t *testing.T) {
	m := NewMulti(nil, []Source{
		failingSource{name: "x", err: errors.New("down")},
		failingSource{name: "y", err: errors.New("down")},
	})
	if _, err := m.Busy(context.Background(), rangeStart, rangeEnd); !errors.Is(err, ErrAllSourcesFailed) {
		t.Fatalf("expected ErrAllSourcesFailed, got %v", err)
	}
}

func TestMultiRequiredSource(t *testing.T) {
	m := NewMulti(nil, []Source{
		Static{SourceName: "ok"},
		failingSource{name: "must", err: errors.New("down")},
	}, WithRequired("must"))
	_, err := m.Busy(context.Background(), rangeStart, rangeEnd)
	if err == nil || !strings.Contains(err.Error(), "must") {
		t.Fatalf("expected required failure, got %v", err)
	}
}

func TestMultiTimeout(t *testing.T) {
	m := NewMulti(nil, []Source{slowSource{}, Static{SourceName: "fast", Intervals: []availability.BusyInterval{interval(2, 9)}}},
		WithSourceTimeout(20*time.Millisecond))
	got, err := m.Busy(context.Background(), rangeStart, rangeEnd)
	if err != nil || len(got) != 1 {
		t.Fatalf("slow source should be skipped, got %v %v", got, err)
	}
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
	err  error
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.err != nil {
		return nil, c.err
	}
	v, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[key] = value
	return nil
}

type countingSource struct {
	Static
	calls int
}

func (c *countingSource) Busy(ctx context.Context, start, end time.Time) ([]availability.BusyInterval, error) {
	c.calls++
	return c.Static.Busy(ctx, start, end)
}

func TestCachedReadThrough(t *testing.T) {
	src := &countingSource{Static: Static{SourceName: "ics", Intervals: []availability.BusyInterval{
		{Start: interval(2, 9).Start, End: interval(2, 9).End, Busy: true, Summary: "dentist"},
	}}}
	cache := &fakeCache{}
	c := NewCached(src, cache, time.Minute, nil)

	for i := 0; i < 2; i++ {
		got, err := c.Busy(context.Background(), rangeStart, rangeEnd)
		if err != nil || len(got) != 1 || got[0].Summary != "dentist" || !got[0].Start.Equal(interval(2, 9).Start) {
			t.Fatalf("call %d: %+v %v", i, got, err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected one source call, got %d", src.calls)
	}
	if c.Name() != "ics" {
		t.Fatalf("cached source must keep the inner name")
	}
}

func TestCachedFallsThroughOnCacheError(t *testing.T) {
	src := &countingSource{Static: Static{SourceName: "ics"}}
	c := NewCached(src, &fakeCache{err: errors.New("redis down")}, time.Minute, nil)
	for i := 0; i < 2; i++ {
		if _, err := c.Busy(context.Background(), rangeStart, rangeEnd); err != nil {
			t.Fatalf("busy: %v", err)
		}
	}
	if src.calls != 2 {
		t.Fatalf("expected source to be called each time, got %d", src.calls)
	}
}

type fakeLister struct{ meetings []model.Meeting }

func (f fakeLister) ListBusy(context.Context, time.Time, time.Time) ([]model.Meeting, error) {
	return f.meetings, nil
}

func TestBookingsSource(t *testing.T) {
	s := interval(2, 9)
	src := NewBookingsSource(fakeLister{meetings: []model.Meeting{
		{ID: "1", StartTime: s.Start, EndTime: s.End, Status: model.MeetingRequested},
		{ID: "2", StartTime: s.Start, EndTime: s.End, Status: model.MeetingDeclined},
		{ID: "3", StartTime: s.Start, EndTime: s.End, Status: model.MeetingConfirmed},
	}})
	got, err := src.Busy(context.Background(), rangeStart, rangeEnd)
	if err != nil {
		t.Fatalf("busy: %v", err)
	}
	if len(got) != 2 || got[0].Summary != "booked" || !got[0].Busy {
		t.Fatalf("unexpected intervals %+v", got)
	}
}
