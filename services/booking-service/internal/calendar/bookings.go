package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/portfolio-site/meetbook/services/booking-service/internal/availability"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/model"
)

// BookingsSourceName names the source backed by stored meetings.
const BookingsSourceName = "bookings"

// MeetingLister returns meetings that still hold their time slot.
type MeetingLister interface {
	ListBusy(ctx context.Context, start, end time.Time) ([]model.Meeting, error)
}

// BookingsSource exposes already booked meetings as busy time so two requests
// cannot claim the same slot.
type BookingsSource struct {
	store MeetingLister
}

func NewBookingsSource(store MeetingLister) *BookingsSource {
	return &BookingsSource{store: store}
}

func (s *BookingsSource) Name() string { return BookingsSourceName }

func (s *BookingsSource) Busy(ctx context.Context, start, end time.Time) ([]availability.BusyInterval, error) {
	meetings, err := s.store.ListBusy(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list booked meetings: %w", err)
	}
	out := make([]availability.BusyInterval, 0, len(meetings))
	for _, m := range meetings {
		if !m.Blocking() {
			continue
		}
		out = append(out, availability.BusyInterval{
			Start:   m.StartTime,
			End:     m.EndTime,
			Busy:    true,
			Summary: "booked",
			Source:  s.Name(),
		})
	}
	return out, nil
}
