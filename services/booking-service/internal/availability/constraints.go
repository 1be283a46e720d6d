// Package availability computes open meeting slots from weekly opening
// windows and busy calendar intervals. Everything here is pure computation
// over in-memory values and safe for concurrent use.
package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTable is wrapped by every constraint table validation failure.
var ErrInvalidTable = errors.New("invalid constraint table")

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:mm" (24h).
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return Clock{}, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func mustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Minutes() int { return c.Hour*60 + c.Minute }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// On returns the clock on the calendar day of d in loc.
func (c Clock) On(d time.Time, loc *time.Location) time.Time {
	d = d.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, loc)
}

// DayRange is an inclusive range of weekdays. From > To wraps through Saturday,
// so {Friday, Monday} covers Fri, Sat, Sun, Mon.
type DayRange struct {
	From time.Weekday
	To   time.Weekday
}

func (r DayRange) Contains(wd time.Weekday) bool {
	if r.From <= r.To {
		return wd >= r.From && wd <= r.To
	}
	return wd >= r.From || wd <= r.To
}

func (r DayRange) valid() bool {
	return r.From >= time.Sunday && r.From <= time.Saturday && r.To >= time.Sunday && r.To <= time.Saturday
}

// Window is a set of weekdays with daily opening hours.
type Window struct {
	Days  DayRange
	Start Clock
	End   Clock
}

func (w Window) valid() bool {
	return w.Days.valid() && w.Start.Minutes() >= 0 && w.End.Minutes() < 24*60 && w.Start.Minutes() < w.End.Minutes()
}

// Constraint holds the opening hours for one (category, subcategory) pair.
// Weekend, when set, overrides Weekday on the days it covers.
type Constraint struct {
	Category    string
	Subcategory string
	Weekday     Window
	Weekend     *Window
}

// WindowFor returns the window that applies on wd.
func (c Constraint) WindowFor(wd time.Weekday) (Window, bool) {
	if c.Weekend != nil && c.Weekend.valid() && c.Weekend.Days.Contains(wd) {
		return *c.Weekend, true
	}
	if c.Weekday.valid() && c.Weekday.Days.Contains(wd) {
		return c.Weekday, true
	}
	return Window{}, false
}

func (c Constraint) key() string {
	return normalize(c.Category) + "/" + normalize(c.Subcategory)
}

func (c Constraint) validate() error {
	if normalize(c.Category) == "" || normalize(c.Subcategory) == "" {
		return fmt.Errorf("%w: constraint without category or subcategory", ErrInvalidTable)
	}
	if !c.Weekday.valid() {
		return fmt.Errorf("%w: %s: weekday window %s-%s is not a valid same-day window", ErrInvalidTable, c.key(), c.Weekday.Start, c.Weekday.End)
	}
	if c.Weekend == nil {
		return nil
	}
	if !c.Weekend.valid() {
		return fmt.Errorf("%w: %s: weekend window %s-%s is not a valid same-day window", ErrInvalidTable, c.key(), c.Weekend.Start, c.Weekend.End)
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if c.Weekday.Days.Contains(wd) && c.Weekend.Days.Contains(wd) {
			return fmt.Errorf("%w: %s: weekday and weekend ranges both cover %s", ErrInvalidTable, c.key(), wd)
		}
	}
	return nil
}

// Table is the flat lookup from (category, subcategory) to its constraint.
type Table struct {
	constraints []Constraint
	index       map[string]int
}

// NewTable validates constraints and builds a table from them.
func NewTable(constraints []Constraint) (*Table, error) {
	t := &Table{
		constraints: make([]Constraint, 0, len(constraints)),
		index:       make(map[string]int, len(constraints)),
	}
	for _, c := range constraints {
		if err := c.validate(); err != nil {
			return nil, err
		}
		k := c.key()
		if _, dup := t.index[k]; dup {
			return nil, fmt.Errorf("%w: duplicate constraint %s", ErrInvalidTable, k)
		}
		t.index[k] = len(t.constraints)
		t.constraints = append(t.constraints, c)
	}
	return t, nil
}

// Find looks up a constraint; matching ignores case and surrounding space.
func (t *Table) Find(category, subcategory string) (Constraint, bool) {
	if t == nil {
		return Constraint{}, false
	}
	i, ok := t.index[normalize(category)+"/"+normalize(subcategory)]
	if !ok {
		return Constraint{}, false
	}
	return t.constraints[i], true
}

// Constraints returns a copy of the table rows in declaration order.
func (t *Table) Constraints() []Constraint {
	if t == nil {
		return nil
	}
	out := make([]Constraint, len(t.constraints))
	copy(out, t.constraints)
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

const (
	CategoryProfessional = "professional"
	CategoryFriends      = "friends"
)

var (
	weekdays = DayRange{From: time.Monday, To: time.Friday}
	allWeek  = DayRange{From: time.Sunday, To: time.Saturday}
	// Weekend overrides apply to Sunday only; Saturday gets no slots for these rows.
	sundayOnly = DayRange{From: time.Sunday, To: time.Sunday}
)

func window(days DayRange, start, end string) Window {
	return Window{Days: days, Start: mustClock(start), End: mustClock(end)}
}

func weekend(start, end string) *Window {
	w := window(sundayOnly, start, end)
	return &w
}

// DefaultConstraints returns the built-in opening hours.
func DefaultConstraints() []Constraint {
	professional := window(weekdays, "10:00", "15:30")
	return []Constraint{
		{Category: CategoryProfessional, Subcategory: "job_interview", Weekday: professional},
		{Category: CategoryProfessional, Subcategory: "networking", Weekday: professional},
		{Category: CategoryProfessional, Subcategory: "consulting", Weekday: professional},
		{Category: CategoryFriends, Subcategory: "coffee", Weekday: window(weekdays, "07:00", "14:00"), Weekend: weekend("07:00", "14:00")},
		{Category: CategoryFriends, Subcategory: "lunch", Weekday: window(weekdays, "11:00", "14:00"), Weekend: weekend("11:00", "13:00")},
		{Category: CategoryFriends, Subcategory: "dinner", Weekday: window(allWeek, "18:00", "23:59")},
		{Category: CategoryFriends, Subcategory: "brunch", Weekday: window(weekdays, "09:30", "14:00"), Weekend: weekend("09:30", "13:00")},
		{Category: CategoryFriends, Subcategory: "outing", Weekday: window(allWeek, "07:00", "23:59")},
		{Category: CategoryFriends, Subcategory: "trips_multi_day", Weekday: window(allWeek, "00:00", "23:59")},
	}
}

// DefaultTable returns the built-in table. It panics only if the built-in rows are malformed.
func DefaultTable() *Table {
	t, err := NewTable(DefaultConstraints())
	if err != nil {
		panic(err)
	}
	return t
}
