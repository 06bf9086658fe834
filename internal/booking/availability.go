package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/teemow/slotkeeper/internal/dates"
	"github.com/teemow/slotkeeper/internal/instrumentation"
	"github.com/teemow/slotkeeper/internal/logging"
	"github.com/teemow/slotkeeper/internal/slots"
)

// AvailableSlots returns up to slots.MaxPresented bookable slots. A preferred
// date or time of day narrows the result unless nothing would remain.
func (s *Service) AvailableSlots(ctx context.Context, req AvailabilityRequest) AvailabilityResult {
	ctx, span := instrumentation.StartSpan(ctx, "booking.available_slots")
	defer span.End()

	logger := logging.WithCall(logging.WithOperation(s.logger, "available_slots"), req.CallID)

	loc := s.location()
	now := s.now()
	from := dates.Of(now, loc)
	days := s.daysAhead
	if req.DaysAhead != 0 {
		days = clampDays(req.DaysAhead)
	}
	to := from.AddDays(days - 1)

	// A preferred date past the lookahead limit is treated as no preference.
	preferred, hasPreferred := dates.Resolve(req.PreferredDate, now, loc)
	if hasPreferred && preferred.After(from.AddDays(MaxDaysAhead-1)) {
		hasPreferred = false
	}
	if hasPreferred && preferred.After(to) {
		to = preferred
	}
	period := slots.ParseTimeOfDay(req.TimeOfDay)

	fail := func(err error) AvailabilityResult {
		f := classify(err)
		instrumentation.SetSpanError(span, err)
		s.metrics.RecordSlotQuery(ctx, instrumentation.StatusError, 0)
		logger.Warn("availability query failed", logging.Err(err))
		return AvailabilityResult{
			Success: false,
			Slots:   []SlotOption{},
			Message: f.message,
			Error:   f.code,
			Cause:   err,
		}
	}

	account, err := s.store.GetActiveAccount(ctx)
	if err != nil {
		return fail(err)
	}

	windowStart := from.Midnight(loc)
	windowEnd := to.AddDays(1).Midnight(loc)
	busy, err := s.calendar.BusyPeriods(ctx, account, windowStart, windowEnd)
	if err != nil {
		return fail(fmt.Errorf("busy periods: %w", err))
	}

	candidates := slots.Generate(from, to, s.rules, busy, now)
	if hasPreferred {
		candidates = slots.FilterByDate(candidates, preferred)
	}
	candidates = slots.FilterByTimeOfDay(candidates, period)
	shown, total := slots.Present(candidates)

	result := AvailabilityResult{
		Success:        true,
		Slots:          make([]SlotOption, 0, len(shown)),
		TotalAvailable: total,
	}
	for i, slot := range shown {
		result.Slots = append(result.Slots, SlotOption{
			Start:   slot.Start,
			End:     slot.End,
			Display: slot.Display,
			Date:    slot.Date,
			Time:    slot.Time,
			Label:   fmt.Sprintf("Option %d: %s", i+1, slot.Display),
		})
	}
	if total == 0 {
		result.Message = noSlotsMessage(daysBetween(from, to, loc))
	} else {
		result.Message = slotsMessage(len(shown), total)
	}

	instrumentation.SetSpanSuccess(span)
	s.metrics.RecordSlotQuery(ctx, instrumentation.StatusSuccess, total)
	args := []any{
		logging.UserHash(account.Email),
		logging.Status(instrumentation.StatusSuccess),
		"total", total,
		"time_of_day", string(period),
		"preferred_date", preferredString(preferred, hasPreferred),
	}
	logger.Info("availability computed", append(args, logging.Window(windowStart, windowEnd)...)...)
	return result
}

func preferredString(d dates.Date, ok bool) string {
	if !ok {
		return "none"
	}
	return d.String()
}

// daysBetween counts calendar days in [from, to].
func daysBetween(from, to dates.Date, loc *time.Location) int {
	return int(to.Midnight(loc).Sub(from.Midnight(loc)).Round(time.Hour).Hours()/24) + 1
}
