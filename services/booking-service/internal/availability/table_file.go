package availability

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File layout:
//
//	constraints:
//	  - category: friends
//	    subcategory: lunch
//	    weekday: {days: [1, 5], start: "11:00", end: "14:00"}
//	    weekend: {days: [0, 0], start: "11:00", end: "13:00"}
type tableFile struct {
	Constraints []constraintRecord `yaml:"constraints"`
}

type constraintRecord struct {
	Category    string        `yaml:"category"`
	Subcategory string        `yaml:"subcategory"`
	Weekday     windowRecord  `yaml:"weekday"`
	Weekend     *windowRecord `yaml:"weekend,omitempty"`
}

type windowRecord struct {
	Days  []int  `yaml:"days,flow"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

func (r windowRecord) window() (Window, error) {
	if len(r.Days) != 2 {
		return Window{}, fmt.Errorf("%w: days must be [from, to], got %v", ErrInvalidTable, r.Days)
	}
	for _, d := range r.Days {
		if d < 0 || d > 6 {
			return Window{}, fmt.Errorf("%w: weekday %d out of range 0..6", ErrInvalidTable, d)
		}
	}
	start, err := ParseClock(r.Start)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	end, err := ParseClock(r.End)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	return Window{
		Days:  DayRange{From: time.Weekday(r.Days[0]), To: time.Weekday(r.Days[1])},
		Start: start,
		End:   end,
	}, nil
}

func recordOf(w Window) windowRecord {
	return windowRecord{
		Days:  []int{int(w.Days.From), int(w.Days.To)},
		Start: w.Start.String(),
		End:   w.End.String(),
	}
}

// LoadTable reads and validates a constraint table from a YAML file.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open constraint table: %w", err)
	}
	defer f.Close()
	return ParseTable(f)
}

// ParseTable decodes a YAML constraint table.
func ParseTable(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file tableFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidTable, err)
	}
	if len(file.Constraints) == 0 {
		return nil, fmt.Errorf("%w: no constraints", ErrInvalidTable)
	}

	constraints := make([]Constraint, 0, len(file.Constraints))
	for i, rec := range file.Constraints {
		weekday, err := rec.Weekday.window()
		if err != nil {
			return nil, fmt.Errorf("constraint %d weekday: %w", i, err)
		}
		c := Constraint{Category: rec.Category, Subcategory: rec.Subcategory, Weekday: weekday}
		if rec.Weekend != nil {
			w, err := rec.Weekend.window()
			if err != nil {
				return nil, fmt.Errorf("constraint %d weekend: %w", i, err)
			}
			c.Weekend = &w
		}
		constraints = append(constraints, c)
	}
	return NewTable(constraints)
}

// MarshalTable renders t in the LoadTable format.
func MarshalTable(t *Table) ([]byte, error) {
	var file tableFile
	for _, c := range t.Constraints() {
		rec := constraintRecord{
			Category:    c.Category,
			Subcategory: c.Subcategory,
			Weekday:     recordOf(c.Weekday),
		}
		if c.Weekend != nil {
			w := recordOf(*c.Weekend)
			rec.Weekend = &w
		}
		file.Constraints = append(file.Constraints, rec)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
