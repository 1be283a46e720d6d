package outbox

import (
	"encoding/json"
	"time"

	"github.com/portfolio-site/meetbook/services/booking-service/internal/model"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateMeeting = "meeting"

	EventMeetingRequested = "booking.meeting.requested.v1"
	EventMeetingConfirmed = "booking.meeting.confirmed.v1"
	EventMeetingDeclined  = "booking.meeting.declined.v1"
)

type meetingPayload struct {
	MeetingID    string     `json:"meeting_id"`
	Category     string     `json:"category"`
	Subcategory  string     `json:"subcategory"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      time.Time  `json:"end_time"`
	Status       string     `json:"status"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	DecisionNote string     `json:"decision_note,omitempty"`
}

// EventTypeForStatus maps a meeting status to the event announcing it.
func EventTypeForStatus(status string) (string, bool) {
	switch status {
	case model.MeetingRequested:
		return EventMeetingRequested, true
	case model.MeetingConfirmed:
		return EventMeetingConfirmed, true
	case model.MeetingDeclined:
		return EventMeetingDeclined, true
	}
	return "", false
}

// MeetingEvent builds the event for m's current status.
func MeetingEvent(m model.Meeting) (Event, error) {
	eventType, ok := EventTypeForStatus(m.Status)
	if !ok {
		eventType = EventMeetingRequested
	}
	payload, err := json.Marshal(meetingPayload{
		MeetingID:    m.ID,
		Category:     m.Category,
		Subcategory:  m.Subcategory,
		Name:         m.Name,
		Email:        m.Email,
		StartTime:    m.StartTime.UTC(),
		EndTime:      m.EndTime.UTC(),
		Status:       m.Status,
		DecidedAt:    m.DecidedAt,
		DecisionNote: m.DecisionNote,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateMeeting,
		AggregateID:   m.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
