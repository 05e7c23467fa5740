// Package timeslot has the calendar value types used for slots and
// appointments. All values live in one implicit zone.
package timeslot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Date is a calendar day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool { return d == Date{} }

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string { return d.Time().Format(dateLayout) }

func (d Date) Compare(o Date) int {
	return d.Time().Compare(o.Time())
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// PG converts d for a postgres date column.
func (d Date) PG() pgtype.Date {
	return pgtype.Date{Time: d.Time(), Valid: true}
}

func DateFromPG(v pgtype.Date) Date {
	return DateOf(v.Time)
}

// TimeOfDay is minutes since midnight.
type TimeOfDay int

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// accept seconds too, e.g. "09:00:00", but only on a minute boundary
		t, err = time.Parse("15:04:05", s)
		if err != nil {
			return 0, fmt.Errorf("parse time %q: %w", s, err)
		}
		if t.Second() != 0 {
			return 0, fmt.Errorf("parse time %q: seconds must be zero", s)
		}
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func MustTime(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TimeOfDay) PG() pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * int64(time.Minute/time.Microsecond), Valid: true}
}

func TimeFromPG(v pgtype.Time) TimeOfDay {
	return TimeOfDay(v.Microseconds / int64(time.Minute/time.Microsecond))
}

// Range is a half-open [Start, End) interval on one date.
type Range struct {
	Date  Date      `json:"date"`
	Start TimeOfDay `json:"start_time"`
	End   TimeOfDay `json:"end_time"`
}

// Validate reports malformed ranges; it never touches a store.
func (r Range) Validate() []string {
	var problems []string
	if r.Date.IsZero() {
		problems = append(problems, "date is required")
	}
	if r.Start < 0 || r.Start >= 24*60 {
		problems = append(problems, "start_time out of range")
	}
	if r.End <= 0 || r.End > 24*60 {
		problems = append(problems, "end_time out of range")
	}
	if r.End <= r.Start {
		problems = append(problems, "end_time must be after start_time")
	}
	return problems
}

// Overlaps uses the half-open test a.start < b.end && a.end > b.start.
func (r Range) Overlaps(o Range) bool {
	return r.Date == o.Date && r.Start < o.End && r.End > o.Start
}

func (r Range) String() string {
	return fmt.Sprintf("%s %s-%s", r.Date, r.Start, r.End)
}
