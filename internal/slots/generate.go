package slots

import (
	"time"

	"github.com/teemow/slotkeeper/internal/dates"
)

// Generate enumerates bookable slots for every business day in [from, to].
//
// Slots tile the business window in the rules' timezone, stepping by the
// appointment duration; a trailing window shorter than the duration is
// dropped. A slot is left out when it starts before now plus the lead time
// or overlaps any busy period. The result is chronological.
func Generate(from, to dates.Date, rules Rules, busy []BusyPeriod, now time.Time) []Slot {
	if rules.Duration <= 0 || to.Before(from) {
		return nil
	}
	loc := rules.location()
	earliest := now.Add(rules.leadTime())
	step := rules.Duration

	var out []Slot
	for d := from; !d.After(to); d = d.AddDays(1) {
		if !rules.IsBusinessDay(d.Weekday()) {
			continue
		}
		open := d.At(rules.Open.Hour, rules.Open.Minute, loc)
		closing := d.At(rules.Close.Hour, rules.Close.Minute, loc)

		for start := open; !start.Add(step).After(closing); start = start.Add(step) {
			end := start.Add(step)
			if start.Before(earliest) {
				continue
			}
			if OverlapsAny(start, end, busy) {
				continue
			}
			out = append(out, newSlot(start, end, loc))
		}
	}
	return out
}

func newSlot(start, end time.Time, loc *time.Location) Slot {
	local := start.In(loc)
	return Slot{
		Start:   start,
		End:     end,
		Display: local.Format(DisplayLayout),
		Date:    local.Format(dates.Layout),
		Time:    local.Format(TimeLayout),
	}
}
