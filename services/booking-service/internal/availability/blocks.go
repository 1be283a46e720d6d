package availability

import "time"

// AvailableBlock is a contiguous run of available slots.
type AvailableBlock struct {
	Start time.Time
	End   time.Time
}

func (b AvailableBlock) Duration() time.Duration { return b.End.Sub(b.Start) }

// DefaultMinDuration applies when a caller asks for a non-positive minimum.
const DefaultMinDuration = SlotWidth

func minDuration(minMinutes int) time.Duration {
	if minMinutes <= 0 {
		return DefaultMinDuration
	}
	return time.Duration(minMinutes) * time.Minute
}

// runs merges back-to-back available slots into maximal blocks. Slots must be
// in chronological order; a gap or an unavailable slot ends the current run.
func runs(slots []CandidateSlot) []AvailableBlock {
	var out []AvailableBlock
	var cur *AvailableBlock
	for _, s := range slots {
		if !s.Available {
			cur = nil
			continue
		}
		if cur != nil && cur.End.Equal(s.Start) {
			cur.End = s.End
			continue
		}
		out = append(out, AvailableBlock{Start: s.Start, End: s.End})
		cur = &out[len(out)-1]
	}
	return out
}

// FilterByDuration returns every maximal run of available slots lasting at
// least minMinutes.
func FilterByDuration(slots []CandidateSlot, minMinutes int) []AvailableBlock {
	need := minDuration(minMinutes)
	var out []AvailableBlock
	for _, b := range runs(slots) {
		if b.Duration() >= need {
			out = append(out, b)
		}
	}
	return out
}

// ChunkByDuration cuts each maximal run into consecutive non-overlapping blocks
// of exactly minMinutes, rounded up to whole slots. Leftovers are dropped.
func ChunkByDuration(slots []CandidateSlot, minMinutes int) []AvailableBlock {
	need := minDuration(minMinutes)
	if rem := need % SlotWidth; rem != 0 {
		need += SlotWidth - rem
	}
	var out []AvailableBlock
	for _, b := range runs(slots) {
		for s := b.Start; !s.Add(need).After(b.End); s = s.Add(need) {
			out = append(out, AvailableBlock{Start: s, End: s.Add(need)})
		}
	}
	return out
}
