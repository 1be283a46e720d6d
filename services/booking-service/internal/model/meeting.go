package model

import "time"

const (
	MeetingRequested = "requested"
	MeetingConfirmed = "confirmed"
	MeetingDeclined  = "declined"
)

// Meeting is a booking request against the owner's availability. Requested and
// confirmed meetings occupy their interval; declined ones free it again.
type Meeting struct {
	ID           string
	Category     string
	Subcategory  string
	Name         string
	Email        string
	Notes        string
	StartTime    time.Time
	EndTime      time.Time
	Status       string
	DecidedAt    *time.Time
	DecisionNote string
	CreatedAt    time.Time
}

func (m Meeting) Blocking() bool {
	return m.Status == MeetingRequested || m.Status == MeetingConfirmed
}

// ValidDecision reports whether status is a terminal admin decision.
func ValidDecision(status string) bool {
	return status == MeetingConfirmed || status == MeetingDeclined
}
