package availability

import (
	"fmt"
	"strings"
	"time"
)

// Policy selects how available runs become blocks.
type Policy string

const (
	PolicyMaximal Policy = "maximal"
	PolicyChunked Policy = "chunked"
)

// ParsePolicy maps an empty string to PolicyMaximal.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyMaximal:
		return PolicyMaximal, nil
	case PolicyChunked:
		return PolicyChunked, nil
	default:
		return "", fmt.Errorf("unknown policy %q", s)
	}
}

type Query struct {
	Category           string
	Subcategory        string
	Start              time.Time
	End                time.Time
	MinDurationMinutes int
	GroupByDay         bool
	Policy             Policy
}

// Result holds the computed availability. Found is false when the
// (category, subcategory) pair is unknown; all other fields are then empty.
// Days is only populated when the query asked for grouping.
type Result struct {
	Found  bool
	Slots  []CandidateSlot
	Blocks []AvailableBlock
	Days   map[string][]AvailableBlock
}

// Engine computes availability against a fixed table in one time zone.
type Engine struct {
	table *Table
	loc   *time.Location
}

func NewEngine(table *Table, loc *time.Location) *Engine {
	if table == nil {
		table = DefaultTable()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{table: table, loc: loc}
}

func (e *Engine) Table() *Table { return e.table }

func (e *Engine) Location() *time.Location { return e.loc }

// Compute runs slot generation, the duration policy and optional day grouping.
func (e *Engine) Compute(q Query, busy []BusyInterval) Result {
	c, ok := e.table.Find(q.Category, q.Subcategory)
	if !ok {
		return Result{}
	}
	res := Result{Found: true}
	res.Slots = GenerateSlots(c, q.Start, q.End, busy, e.loc)
	if q.Policy == PolicyChunked {
		res.Blocks = ChunkByDuration(res.Slots, q.MinDurationMinutes)
	} else {
		res.Blocks = FilterByDuration(res.Slots, q.MinDurationMinutes)
	}
	if q.GroupByDay {
		res.Days = GroupByDay(res.Blocks, e.loc)
	}
	return res
}

// Contains reports whether [start, end) can be booked for the query's pair.
// Within one local day the interval must lie inside a single available run.
// An interval crossing midnight is checked day by day: the first day's run must
// reach that day's last slot, every later day's run must open at midnight, and
// full middle days must be free from midnight to their last slot. No busy
// interval may overlap [start, end), including the gap after a day's last slot.
func (e *Engine) Contains(q Query, start, end time.Time, busy []BusyInterval) bool {
	if !end.After(start) {
		return false
	}
	c, ok := e.table.Find(q.Category, q.Subcategory)
	if !ok {
		return false
	}
	if _, hit := firstOverlap(start, end, busyOnly(busy)); hit {
		return false
	}

	pieces := SplitAtMidnight(AvailableBlock{Start: start, End: end}, e.loc)
	for i, p := range pieces {
		slots := GenerateSlots(c, p.Start, p.Start, busy, e.loc)
		if len(slots) == 0 {
			return false
		}
		r, ok := runAt(runs(slots), p.Start)
		if !ok {
			return false
		}
		if i > 0 && !r.Start.Equal(p.Start) {
			return false
		}
		if i < len(pieces)-1 {
			if !r.End.Equal(slots[len(slots)-1].End) {
				return false
			}
			continue
		}
		if p.End.After(r.End) {
			return false
		}
	}
	return true
}

// runAt returns the run containing t.
func runAt(rs []AvailableBlock, t time.Time) (AvailableBlock, bool) {
	for _, r := range rs {
		if !t.Before(r.Start) && t.Before(r.End) {
			return r, true
		}
	}
	return AvailableBlock{}, false
}
