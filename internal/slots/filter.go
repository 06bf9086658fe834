package slots

import (
	"github.com/teemow/slotkeeper/internal/dates"
)

// ApplyIfNonEmpty keeps the slots matching keep. When nothing matches, the
// input is returned unchanged so a preference never leaves the caller with
// zero options.
func ApplyIfNonEmpty(in []Slot, keep func(Slot) bool) []Slot {
	out := make([]Slot, 0, len(in))
	for _, s := range in {
		if keep(s) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return in
	}
	return out
}

// FilterByDate keeps slots whose local date is d.
func FilterByDate(in []Slot, d dates.Date) []Slot {
	want := d.String()
	return ApplyIfNonEmpty(in, func(s Slot) bool { return s.Date == want })
}

// FilterByTimeOfDay keeps slots starting within the period's local hours,
// using the zone the slot start carries. Any is a no-op.
func FilterByTimeOfDay(in []Slot, period TimeOfDay) []Slot {
	from, to, ok := period.hours()
	if !ok {
		return in
	}
	return ApplyIfNonEmpty(in, func(s Slot) bool {
		h := s.Start.Hour()
		return h >= from && h < to
	})
}

// Present caps the list for presentation and reports how many were available.
func Present(in []Slot) (shown []Slot, total int) {
	total = len(in)
	if total > MaxPresented {
		return in[:MaxPresented], total
	}
	return in, total
}
