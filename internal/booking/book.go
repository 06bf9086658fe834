package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/slotkeeper/internal/calendar"
	"github.com/teemow/slotkeeper/internal/dates"
	"github.com/teemow/slotkeeper/internal/instrumentation"
	"github.com/teemow/slotkeeper/internal/logging"
	"github.com/teemow/slotkeeper/internal/slots"
	"github.com/teemow/slotkeeper/internal/store"
)

// RevalidationMargin widens the busy re-query around the chosen interval.
const RevalidationMargin = time.Minute

// cleanupTimeout bounds the persist retry and compensation, which run even
// when the request context is already done.
const cleanupTimeout = 10 * time.Second

// Book re-checks the chosen slot and commits it: first the calendar event,
// then the local record. Races with concurrent bookings are settled by a
// narrow re-query; the loser gets ErrSlotNoLongerAvailable.
func (s *Service) Book(ctx context.Context, req BookingRequest) BookingResult {
	ctx, span := instrumentation.StartSpan(ctx, "booking.book")
	defer span.End()

	started := time.Now()
	logger := logging.WithCall(logging.WithOperation(s.logger, "book"), req.CallID)
	audit := &instrumentation.BookingAudit{
		CallID:       req.CallID,
		Channel:      "voice",
		CustomerName: req.CustomerName,
		Phone:        req.PhoneNumber,
	}

	finish := func(res BookingResult, outcome string) BookingResult {
		audit.Outcome = outcome
		audit.Duration = time.Since(started)
		if res.Cause != nil {
			audit.Error = res.Cause.Error()
			instrumentation.SetSpanError(span, res.Cause)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		s.metrics.RecordBooking(ctx, outcome, audit.AccountEmail)
		s.audit.LogBooking(audit.WithSpanContext(ctx))
		return res
	}
	fail := func(err error) BookingResult {
		f := classify(err)
		logger.Warn("booking failed", logging.Err(err), "outcome", f.outcome)
		return finish(BookingResult{
			Message:     f.message,
			Error:       f.code,
			ShouldRetry: f.shouldRetry,
			Cause:       err,
		}, f.outcome)
	}

	start, err := s.validate(req)
	if err != nil {
		res := fail(err)
		var missing missingFieldsError
		if errors.As(err, &missing) {
			res.Message = incompleteMessage(missing)
		}
		return res
	}
	end := start.Add(s.rules.Duration)
	audit.Start = start

	if start.Before(s.now()) {
		res := fail(fmt.Errorf("%w: start %s is in the past", ErrSlotNoLongerAvailable, start.Format(time.RFC3339)))
		res.Message = msgSlotInPast
		return res
	}
	if !s.isBookableStart(start) {
		res := fail(fmt.Errorf("%w: start %s is not an offered slot", ErrSlotNoLongerAvailable, start.Format(time.RFC3339)))
		res.Message = msgSlotNotOffered
		return res
	}

	account, err := s.store.GetActiveAccount(ctx)
	if err != nil {
		return fail(err)
	}
	audit.AccountEmail = account.Email
	logger = logger.With(logging.UserHash(account.Email))

	overlap, err := s.store.HasOverlap(ctx, account.Email, start, end)
	if err != nil {
		return fail(fmt.Errorf("overlap check: %w", err))
	}
	if overlap {
		return fail(fmt.Errorf("%w: overlaps a recorded appointment", ErrSlotNoLongerAvailable))
	}

	busy, err := s.calendar.BusyPeriods(ctx, account, start.Add(-RevalidationMargin), end.Add(RevalidationMargin))
	if err != nil {
		return fail(fmt.Errorf("revalidate: %w", err))
	}
	if slots.OverlapsAny(start, end, busy) {
		return fail(fmt.Errorf("%w: calendar is busy", ErrSlotNoLongerAvailable))
	}

	eventID, err := s.calendar.CreateEvent(ctx, account, s.eventInput(req, start, end))
	if err != nil {
		return fail(fmt.Errorf("create event: %w", err))
	}
	audit.EventID = eventID

	appt := &store.Appointment{
		EventID:      eventID,
		CustomerName: strings.TrimSpace(req.CustomerName),
		Phone:        strings.TrimSpace(req.PhoneNumber),
		Email:        strings.TrimSpace(req.Email),
		Address:      strings.TrimSpace(req.Address),
		Issue:        strings.TrimSpace(req.Issue),
		Start:        start,
		End:          end,
		AccountEmail: account.Email,
		CallID:       req.CallID,
	}
	if err := s.persist(ctx, appt); err != nil {
		outcome := s.compensate(ctx, account, eventID)
		logger.Error("partial_commit",
			logging.EventID(eventID),
			logging.CallID(req.CallID),
			"compensation", outcome,
			logging.Err(err))
		return finish(BookingResult{
			Message: msgCallback,
			Error:   CodePartialCommit,
			Cause:   fmt.Errorf("%w: %w", ErrPartialCommit, err),
		}, instrumentation.BookingFailed)
	}

	display := start.In(s.location()).Format(slots.DisplayLayout)
	logger.Info("appointment booked",
		logging.EventID(eventID),
		"appointment_id", appt.ID,
		"start", start.UTC().Format(time.RFC3339))
	return finish(BookingResult{
		Success: true,
		Message: confirmedMessage(display),
		Appointment: &AppointmentInfo{
			ID:           appt.ID,
			EventID:      eventID,
			Start:        appt.Start,
			End:          appt.End,
			Display:      display,
			CustomerName: appt.CustomerName,
		},
	}, instrumentation.BookingConfirmed)
}

// isBookableStart reports whether start is a slot the business rules offer
// on its day, ignoring busy periods. This covers business days, opening
// hours, grid alignment and the lead time.
func (s *Service) isBookableStart(start time.Time) bool {
	day := dates.Of(start, s.location())
	for _, slot := range slots.Generate(day, day, s.rules, nil, s.now()) {
		if slot.Start.Equal(start) {
			return true
		}
	}
	return false
}

type missingFieldsError []string

func (e missingFieldsError) Error() string {
	return "missing " + strings.Join(e, ", ")
}

func (e missingFieldsError) Unwrap() error { return ErrIncompleteBookingRequest }

// validate checks required fields and parses the start instant.
func (s *Service) validate(req BookingRequest) (time.Time, error) {
	var missing missingFieldsError
	required := []struct {
		value string
		label string
	}{
		{req.CustomerName, "name"},
		{req.PhoneNumber, "phone number"},
		{req.Address, "address"},
		{req.Issue, "description of the issue"},
		{req.StartTime, "appointment time"},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.label)
		}
	}
	if len(missing) > 0 {
		return time.Time{}, missing
	}

	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: startTime %q is not RFC3339", ErrIncompleteBookingRequest, req.StartTime)
	}
	return start, nil
}

// persist records appt, retrying once.
func (s *Service) persist(ctx context.Context, appt *store.Appointment) error {
	err := s.store.CreateAppointment(ctx, appt)
	if err == nil {
		return nil
	}
	s.logger.Warn("failed to record appointment, retrying", logging.EventID(appt.EventID), logging.Err(err))

	retryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if retryErr := s.store.CreateAppointment(retryCtx, appt); retryErr != nil {
		return errors.Join(err, retryErr)
	}
	return nil
}

// compensate deletes an event whose appointment could not be recorded.
func (s *Service) compensate(ctx context.Context, account *store.Account, eventID string) string {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	outcome := instrumentation.PartialCommitCompensated
	if err := s.calendar.DeleteEvent(cleanupCtx, account, eventID); err != nil {
		outcome = instrumentation.PartialCommitOrphaned
		s.logger.Error("failed to delete orphaned calendar event", logging.EventID(eventID), logging.Err(err))
	}
	s.metrics.RecordPartialCommit(ctx, outcome)
	return outcome
}

func (s *Service) eventInput(req BookingRequest, start, end time.Time) calendar.EventInput {
	name := strings.TrimSpace(req.CustomerName)
	issue := strings.TrimSpace(req.Issue)

	var b strings.Builder
	fmt.Fprintf(&b, "Customer: %s\n", name)
	fmt.Fprintf(&b, "Phone: %s\n", strings.TrimSpace(req.PhoneNumber))
	if email := strings.TrimSpace(req.Email); email != "" {
		fmt.Fprintf(&b, "Email: %s\n", email)
	}
	fmt.Fprintf(&b, "Address: %s\n", strings.TrimSpace(req.Address))
	fmt.Fprintf(&b, "Issue: %s\n", issue)
	if req.CallID != "" {
		fmt.Fprintf(&b, "Call: %s\n", req.CallID)
	}
	if s.businessName != "" {
		fmt.Fprintf(&b, "Booked by %s\n", s.businessName)
	}

	input := calendar.EventInput{
		Summary:     fmt.Sprintf("%s: %s", name, summarize(issue)),
		Description: b.String(),
		Location:    strings.TrimSpace(req.Address),
		Start:       start,
		End:         end,
		TimeZone:    s.location().String(),
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		input.Attendees = []string{email}
	}
	return input
}

// summarize shortens an issue description for an event title.
func summarize(issue string) string {
	const limit = 60
	r := []rune(issue)
	if len(r) <= limit {
		return issue
	}
	return strings.TrimSpace(string(r[:limit])) + "..."
}
