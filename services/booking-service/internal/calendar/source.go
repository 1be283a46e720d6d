// Package calendar fetches busy intervals from the owner's calendars.
package calendar

import (
	"context"
	"sort"
	"time"

	"github.com/portfolio-site/meetbook/services/booking-service/internal/availability"
)

// Source yields busy intervals overlapping [start, end).
type Source interface {
	Name() string
	Busy(ctx context.Context, start, end time.Time) ([]availability.BusyInterval, error)
}

func overlaps(b availability.BusyInterval, start, end time.Time) bool {
	return b.Start.Before(end) && start.Before(b.End)
}

func sortByStart(in []availability.BusyInterval) {
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].Start.Equal(in[j].Start) {
			return in[i].End.Before(in[j].End)
		}
		return in[i].Start.Before(in[j].Start)
	})
}

// Static serves a fixed list. Used for tests and for pinning known busy blocks.
type Static struct {
	SourceName string
	Intervals  []availability.BusyInterval
}

func (s Static) Name() string { return s.SourceName }

func (s Static) Busy(_ context.Context, start, end time.Time) ([]availability.BusyInterval, error) {
	var out []availability.BusyInterval
	for _, b := range s.Intervals {
		if overlaps(b, start, end) {
			if b.Source == "" {
				b.Source = s.SourceName
			}
			out = append(out, b)
		}
	}
	return out, nil
}
