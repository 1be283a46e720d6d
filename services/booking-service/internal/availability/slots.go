package availability

import "time"

// SlotWidth is the fixed granularity of candidate slots.
const SlotWidth = 30 * time.Minute

// BusyInterval is an externally sourced calendar period. Only intervals with
// Busy set block slots; transparent ("free") entries are ignored.
type BusyInterval struct {
	Start   time.Time
	End     time.Time
	Busy    bool
	Summary string
	Source  string
}

type CandidateSlot struct {
	Start     time.Time
	End       time.Time
	Available bool
	Reason    string
}

// GenerateSlots walks the local calendar days of [rangeStart, rangeEnd] in loc and
// emits back-to-back SlotWidth slots inside the window that applies to each day.
// A trailing piece shorter than SlotWidth is dropped. A slot is unavailable iff a busy
// interval overlaps it under half-open semantics; touching boundaries do not count.
func GenerateSlots(c Constraint, rangeStart, rangeEnd time.Time, busy []BusyInterval, loc *time.Location) []CandidateSlot {
	if loc == nil {
		loc = rangeStart.Location()
	}
	first := rangeStart.In(loc)
	last := rangeEnd.In(loc)
	firstDay := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, loc)
	if lastDay.Before(firstDay) {
		return nil
	}

	blocking := busyOnly(busy)

	var slots []CandidateSlot
	for i := 0; ; i++ {
		day := time.Date(firstDay.Year(), firstDay.Month(), firstDay.Day()+i, 0, 0, 0, 0, loc)
		if day.After(lastDay) {
			break
		}
		w, ok := c.WindowFor(day.Weekday())
		if !ok {
			continue
		}
		windowStart := w.Start.On(day, loc)
		windowEnd := w.End.On(day, loc)
		for s := windowStart; !s.Add(SlotWidth).After(windowEnd); s = s.Add(SlotWidth) {
			slot := CandidateSlot{Start: s, End: s.Add(SlotWidth), Available: true}
			if b, hit := firstOverlap(slot.Start, slot.End, blocking); hit {
				slot.Available = false
				slot.Reason = b.Summary
				if slot.Reason == "" {
					slot.Reason = "busy"
				}
			}
			slots = append(slots, slot)
		}
	}
	return slots
}

func busyOnly(in []BusyInterval) []BusyInterval {
	out := make([]BusyInterval, 0, len(in))
	for _, b := range in {
		if b.Busy && b.End.After(b.Start) {
			out = append(out, b)
		}
	}
	return out
}

func firstOverlap(start, end time.Time, busy []BusyInterval) (BusyInterval, bool) {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start.Before(b.End) && b.Start.Before(end) {
			return b, true
		}
	}
	return BusyInterval{}, false
}
