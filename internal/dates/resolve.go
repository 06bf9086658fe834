package dates

import (
	"regexp"
	"strings"
	"time"
)

var isoDatePattern = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)

// weekdays is ordered so a phrase naming two days always resolves the same way.
var weekdays = []struct {
	name string
	day  time.Weekday
}{
	{"sunday", time.Sunday},
	{"monday", time.Monday},
	{"tuesday", time.Tuesday},
	{"wednesday", time.Wednesday},
	{"thursday", time.Thursday},
	{"friday", time.Friday},
	{"saturday", time.Saturday},
}

// Resolve maps a spoken date reference to a calendar date in loc, relative
// to the reference instant. It recognizes "today", "tomorrow",
// "day after tomorrow", weekday names (optionally prefixed by "next") and
// explicit YYYY-MM-DD dates.
//
// A weekday resolves to its next occurrence strictly after the reference
// date; "next" adds one more week. The boolean is false when nothing in the
// phrase matches, which callers treat as no date preference.
func Resolve(phrase string, reference time.Time, loc *time.Location) (Date, bool) {
	if loc == nil {
		loc = time.UTC
	}
	p := strings.ToLower(strings.TrimSpace(phrase))
	if p == "" {
		return Date{}, false
	}
	today := Of(reference, loc)
	words := tokenize(p)

	switch {
	case strings.Contains(p, "day after tomorrow"):
		return today.AddDays(2), true
	case words["tomorrow"]:
		return today.AddDays(1), true
	case words["today"]:
		return today, true
	}

	for _, wd := range weekdays {
		if !words[wd.name] {
			continue
		}
		ahead := (int(wd.day) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		if words["next"] {
			ahead += 7
		}
		return today.AddDays(ahead), true
	}

	if m := isoDatePattern.FindString(p); m != "" {
		if d, err := Parse(m); err == nil {
			return d, true
		}
	}
	return Date{}, false
}

func tokenize(p string) map[string]bool {
	fields := strings.FieldsFunc(p, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	words := make(map[string]bool, len(fields))
	for _, f := range fields {
		words[f] = true
	}
	return words
}
