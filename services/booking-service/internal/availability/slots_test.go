package availability

import (
	"reflect"
	"testing"
	"time"
)

// 2024-01-01 is a Monday.
func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func at(d, h, m int) time.Time { return time.Date(2024, 1, d, h, m, 0, 0, time.UTC) }

func endOfDay(d int) time.Time { return time.Date(2024, 1, d, 23, 59, 59, 0, time.UTC) }

func mustFind(t *testing.T, category, subcategory string) Constraint {
	t.Helper()
	c, ok := DefaultTable().Find(category, subcategory)
	if !ok {
		t.Fatalf("missing constraint %s/%s", category, subcategory)
	}
	return c
}

func TestProfessionalWeekHasElevenSlotsPerWeekday(t *testing.T) {
	c := mustFind(t, CategoryProfessional, "job_interview")
	slots := GenerateSlots(c, day(1), endOfDay(7), nil, time.UTC)
	if len(slots) != 55 {
		t.Fatalf("expected 55 slots, got %d", len(slots))
	}
	perDay := map[int]int{}
	for _, s := range slots {
		if !s.Available {
			t.Fatalf("unexpected unavailable slot %v", s)
		}
		if s.End.Sub(s.Start) != SlotWidth {
			t.Fatalf("slot width %v", s.End.Sub(s.Start))
		}
		perDay[s.Start.Day()]++
	}
	for d := 1; d <= 5; d++ {
		if perDay[d] != 11 {
			t.Fatalf("day %d: expected 11 slots, got %d", d, perDay[d])
		}
	}
	if perDay[6] != 0 || perDay[7] != 0 {
		t.Fatalf("weekend must have no professional slots: %v", perDay)
	}
	if last := slots[10]; !last.End.Equal(at(1, 15, 30)) {
		t.Fatalf("last monday slot ends %v", last.End)
	}
}

func TestCoffeeSaturdayEmptySundayOpen(t *testing.T) {
	c := mustFind(t, CategoryFriends, "coffee")
	if got := GenerateSlots(c, day(6), endOfDay(6), nil, time.UTC); len(got) != 0 {
		t.Fatalf("saturday: expected no slots, got %d", len(got))
	}
	sunday := GenerateSlots(c, day(7), endOfDay(7), nil, time.UTC)
	if len(sunday) != 14 {
		t.Fatalf("sunday: expected 14 slots, got %d", len(sunday))
	}
}

func TestWeekendWindowOverridesWeekday(t *testing.T) {
	c := mustFind(t, CategoryFriends, "lunch")
	sunday := GenerateSlots(c, day(7), endOfDay(7), nil, time.UTC)
	if len(sunday) != 4 || !sunday[3].End.Equal(at(7, 13, 0)) {
		t.Fatalf("sunday lunch should end at 13:00, got %d slots", len(sunday))
	}
}

func TestLateWindowDropsPartialSlot(t *testing.T) {
	c := mustFind(t, CategoryFriends, "dinner")
	slots := GenerateSlots(c, day(3), endOfDay(3), nil, time.UTC)
	if len(slots) != 11 {
		t.Fatalf("expected 11 dinner slots, got %d", len(slots))
	}
	if last := slots[len(slots)-1]; !last.End.Equal(at(3, 23, 30)) {
		t.Fatalf("last slot should end 23:30, got %v", last.End)
	}
}

func TestOverlapIsHalfOpen(t *testing.T) {
	c := mustFind(t, CategoryProfessional, "consulting")
	cases := []struct {
		name        string
		busy        BusyInterval
		unavailable []time.Time
	}{
		{"exact slot", BusyInterval{Start: at(2, 10, 0), End: at(2, 10, 30), Busy: true}, []time.Time{at(2, 10, 0)}},
		{"straddles two", BusyInterval{Start: at(2, 10, 15), End: at(2, 10, 45), Busy: true}, []time.Time{at(2, 10, 0), at(2, 10, 30)}},
		{"touches window start", BusyInterval{Start: at(2, 9, 0), End: at(2, 10, 0), Busy: true}, nil},
		{"touches window end", BusyInterval{Start: at(2, 15, 30), End: at(2, 16, 0), Busy: true}, nil},
		{"transparent", BusyInterval{Start: at(2, 10, 0), End: at(2, 12, 0), Busy: false}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slots := GenerateSlots(c, day(2), endOfDay(2), []BusyInterval{tc.busy}, time.UTC)
			var got []time.Time
			for _, s := range slots {
				if !s.Available {
					got = append(got, s.Start)
					if s.Reason != "busy" {
						t.Fatalf("expected default reason, got %q", s.Reason)
					}
				}
			}
			if len(got) != len(tc.unavailable) {
				t.Fatalf("expected %v unavailable, got %v", tc.unavailable, got)
			}
			for i := range got {
				if !got[i].Equal(tc.unavailable[i]) {
					t.Fatalf("expected %v unavailable, got %v", tc.unavailable, got)
				}
			}
		})
	}
}

func TestReasonCarriesSummary(t *testing.T) {
	c := mustFind(t, CategoryProfessional, "networking")
	busy := []BusyInterval{{Start: at(2, 11, 0), End: at(2, 11, 30), Busy: true, Summary: "standup"}}
	for _, s := range GenerateSlots(c, day(2), endOfDay(2), busy, time.UTC) {
		if s.Start.Equal(at(2, 11, 0)) && s.Reason != "standup" {
			t.Fatalf("expected summary reason, got %q", s.Reason)
		}
	}
}

func TestGenerateSlotsDeterministic(t *testing.T) {
	c := mustFind(t, CategoryFriends, "outing")
	busy := []BusyInterval{
		{Start: at(3, 9, 0), End: at(3, 10, 0), Busy: true},
		{Start: at(4, 20, 0), End: at(4, 21, 0), Busy: true},
	}
	a := GenerateSlots(c, day(1), endOfDay(7), busy, time.UTC)
	b := GenerateSlots(c, day(1), endOfDay(7), busy, time.UTC)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("slot generation is not deterministic")
	}
	for i := 1; i < len(a); i++ {
		if !a[i-1].Start.Before(a[i].Start) {
			t.Fatalf("slots out of order at %d", i)
		}
	}
}

func TestEmptyConstraintYieldsNoSlots(t *testing.T) {
	if got := GenerateSlots(Constraint{}, day(1), endOfDay(7), nil, time.UTC); len(got) != 0 {
		t.Fatalf("expected no slots, got %d", len(got))
	}
	c := mustFind(t, CategoryFriends, "dinner")
	if got := GenerateSlots(c, day(5), day(4), nil, time.UTC); len(got) != 0 {
		t.Fatalf("inverted range should be empty, got %d", len(got))
	}
}

func TestGenerateSlotsUsesLocalCalendarDays(t *testing.T) {
	loc := time.FixedZone("PST", -8*3600)
	c := mustFind(t, CategoryProfessional, "job_interview")
	// 2024-01-02T06:00Z is Monday 22:00 in loc: only Monday is walked.
	slots := GenerateSlots(c, at(1, 18, 0), at(2, 6, 0), nil, loc)
	if len(slots) != 11 {
		t.Fatalf("expected one local day, got %d slots", len(slots))
	}
	if slots[0].Start.Location() != loc || slots[0].Start.Hour() != 10 {
		t.Fatalf("slot not in local zone: %v", slots[0].Start)
	}
}
