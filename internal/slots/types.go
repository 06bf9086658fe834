package slots

import (
	"fmt"
	"time"
)

// Display layouts in the business timezone.
const (
	DisplayLayout = "Monday, January 2 at 3:04 PM"
	TimeLayout    = "3:04 PM"
)

// DefaultLeadTime is the minimum notice between now and a slot start.
const DefaultLeadTime = time.Hour

// MaxPresented caps how many slots are offered to a caller at once.
const MaxPresented = 5

// ClockTime is a time of day in minutes after midnight.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" in 24 hour form.
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q (want HH:MM): %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Minutes returns the offset from midnight in minutes.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Rules describes when the business takes appointments.
type Rules struct {
	Open     ClockTime
	Close    ClockTime
	Days     []time.Weekday
	Duration time.Duration
	Location *time.Location
	// LeadTime defaults to DefaultLeadTime when zero.
	LeadTime time.Duration
}

// IsBusinessDay reports whether wd is one of the configured days.
func (r Rules) IsBusinessDay(wd time.Weekday) bool {
	for _, d := range r.Days {
		if d == wd {
			return true
		}
	}
	return false
}

func (r Rules) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

func (r Rules) leadTime() time.Duration {
	if r.LeadTime <= 0 {
		return DefaultLeadTime
	}
	return r.LeadTime
}

// BusyPeriod is an interval the calendar reports as unavailable.
type BusyPeriod struct {
	Start time.Time
	End   time.Time
}

// Slot is a bookable interval with display strings in the business timezone.
type Slot struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Display string    `json:"display"`
	Date    string    `json:"date"`
	Time    string    `json:"time"`
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// OverlapsAny reports whether [start, end) intersects any busy period.
func OverlapsAny(start, end time.Time, busy []BusyPeriod) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}

// TimeOfDay is a coarse preference for when a slot should start.
type TimeOfDay string

const (
	Any       TimeOfDay = "any"
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
)

// ParseTimeOfDay normalizes a caller preference. Unknown values map to Any.
func ParseTimeOfDay(s string) TimeOfDay {
	switch TimeOfDay(s) {
	case Morning, Afternoon, Evening:
		return TimeOfDay(s)
	default:
		return Any
	}
}

// hours returns the [from, to) local hour range of the period.
func (p TimeOfDay) hours() (from, to int, ok bool) {
	switch p {
	case Morning:
		return 6, 12, true
	case Afternoon:
		return 12, 17, true
	case Evening:
		return 17, 21, true
	default:
		return 0, 0, false
	}
}
