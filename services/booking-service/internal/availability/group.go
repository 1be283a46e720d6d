package availability

import (
	"sort"
	"time"
)

// DayLayout keys grouped output.
const DayLayout = "2006-01-02"

// SplitAtMidnight cuts b at each local midnight in loc.
func SplitAtMidnight(b AvailableBlock, loc *time.Location) []AvailableBlock {
	if loc == nil {
		loc = b.Start.Location()
	}
	var out []AvailableBlock
	start := b.Start.In(loc)
	end := b.End.In(loc)
	for start.Before(end) {
		next := time.Date(start.Year(), start.Month(), start.Day()+1, 0, 0, 0, 0, loc)
		if !next.Before(end) {
			out = append(out, AvailableBlock{Start: start, End: end})
			break
		}
		out = append(out, AvailableBlock{Start: start, End: next})
		start = next
	}
	return out
}

// GroupByDay buckets blocks by local start date, splitting any block that
// crosses midnight so every piece lands on its own day.
func GroupByDay(blocks []AvailableBlock, loc *time.Location) map[string][]AvailableBlock {
	out := make(map[string][]AvailableBlock)
	for _, b := range blocks {
		for _, piece := range SplitAtMidnight(b, loc) {
			key := piece.Start.Format(DayLayout)
			out[key] = append(out[key], piece)
		}
	}
	for _, v := range out {
		sort.Slice(v, func(i, j int) bool { return v[i].Start.Before(v[j].Start) })
	}
	return out
}

// SortedDays returns the keys of a GroupByDay result in ascending order.
func SortedDays(groups map[string][]AvailableBlock) []string {
	days := make([]string, 0, len(groups))
	for d := range groups {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}
