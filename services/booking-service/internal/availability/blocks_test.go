package availability

import (
	"testing"
	"time"
)

func slotRun(start time.Time, n int, available bool) []CandidateSlot {
	out := make([]CandidateSlot, 0, n)
	for i := 0; i < n; i++ {
		s := start.Add(time.Duration(i) * SlotWidth)
		out = append(out, CandidateSlot{Start: s, End: s.Add(SlotWidth), Available: available})
	}
	return out
}

func TestFilterByDurationThresholds(t *testing.T) {
	slots := append(slotRun(at(2, 10, 0), 3, true), slotRun(at(2, 11, 30), 1, false)...)

	if got := FilterByDuration(slots, 60); len(got) != 1 || got[0].Duration() != 90*time.Minute {
		t.Fatalf("60 min: expected one 90 min block, got %v", got)
	}
	if got := FilterByDuration(slots, 100); len(got) != 0 {
		t.Fatalf("100 min: expected none, got %v", got)
	}
	if got := FilterByDuration(slots, 0); len(got) != 1 {
		t.Fatalf("default minimum: expected one block, got %v", got)
	}
}

func TestFilterByDurationBreaksOnGap(t *testing.T) {
	slots := append(slotRun(at(2, 10, 0), 2, true), slotRun(at(2, 11, 30), 2, true)...)
	got := FilterByDuration(slots, 30)
	if len(got) != 2 {
		t.Fatalf("non-adjacent slots must not merge, got %v", got)
	}
}

func TestChunkByDuration(t *testing.T) {
	slots := slotRun(at(2, 11, 0), 6, true)

	got := ChunkByDuration(slots, 60)
	if len(got) != 3 {
		t.Fatalf("expected 3 hour chunks, got %v", got)
	}
	for i, b := range got {
		if b.Duration() != time.Hour || !b.Start.Equal(at(2, 11+i, 0)) {
			t.Fatalf("chunk %d = %v", i, b)
		}
	}

	if got := ChunkByDuration(slots, 45); len(got) != 3 {
		t.Fatalf("45 min rounds up to whole slots, got %v", got)
	}
	if got := ChunkByDuration(slotRun(at(2, 11, 0), 3, true), 60); len(got) != 1 {
		t.Fatalf("remainder must be dropped, got %v", got)
	}
}

func TestSplitAtMidnight(t *testing.T) {
	b := AvailableBlock{Start: at(2, 22, 0), End: at(3, 2, 0)}
	parts := SplitAtMidnight(b, time.UTC)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %v", parts)
	}
	if !parts[0].End.Equal(day(3)) || !parts[1].Start.Equal(day(3)) {
		t.Fatalf("split not at midnight: %v", parts)
	}

	long := AvailableBlock{Start: at(2, 12, 0), End: at(4, 12, 0)}
	if got := SplitAtMidnight(long, time.UTC); len(got) != 3 {
		t.Fatalf("expected 3 parts, got %v", got)
	}
	exact := AvailableBlock{Start: at(2, 22, 0), End: day(3)}
	if got := SplitAtMidnight(exact, time.UTC); len(got) != 1 {
		t.Fatalf("block ending at midnight stays whole, got %v", got)
	}
}

func TestGroupByDaySplitsAndSorts(t *testing.T) {
	blocks := []AvailableBlock{
		{Start: at(3, 9, 0), End: at(3, 10, 0)},
		{Start: at(2, 23, 0), End: at(3, 1, 0)},
	}
	groups := GroupByDay(blocks, time.UTC)
	days := SortedDays(groups)
	if len(days) != 2 || days[0] != "2024-01-02" || days[1] != "2024-01-03" {
		t.Fatalf("unexpected days %v", days)
	}
	third := groups["2024-01-03"]
	if len(third) != 2 || !third[0].Start.Equal(day(3)) || !third[1].Start.Equal(at(3, 9, 0)) {
		t.Fatalf("unexpected 3rd buckets %v", third)
	}
}
