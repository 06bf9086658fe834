package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teemow/slotkeeper/internal/calendar"
	"github.com/teemow/slotkeeper/internal/google"
	"github.com/teemow/slotkeeper/internal/instrumentation"
	"github.com/teemow/slotkeeper/internal/logging"
	"github.com/teemow/slotkeeper/internal/slots"
	"github.com/teemow/slotkeeper/internal/store"
)

// Calendar is the external calendar the service books into.
type Calendar interface {
	BusyPeriods(ctx context.Context, account *store.Account, start, end time.Time) ([]slots.BusyPeriod, error)
	CreateEvent(ctx context.Context, account *store.Account, input calendar.EventInput) (string, error)
	DeleteEvent(ctx context.Context, account *store.Account, eventID string) error
}

// Store holds accounts and recorded appointments.
type Store interface {
	GetActiveAccount(ctx context.Context) (*store.Account, error)
	HasOverlap(ctx context.Context, accountEmail string, start, end time.Time) (bool, error)
	CreateAppointment(ctx context.Context, a *store.Appointment) error
}

// Config holds the business settings of a Service.
type Config struct {
	Rules        slots.Rules
	DaysAhead    int
	BusinessName string
}

// Service answers availability queries and books appointments. Its methods
// never return Go errors: every outcome is a structured result.
type Service struct {
	calendar     Calendar
	store        Store
	rules        slots.Rules
	daysAhead    int
	businessName string

	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAudit sets the booking audit logger.
func WithAudit(a *instrumentation.AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(cal Calendar, st Store, cfg Config, opts ...Option) *Service {
	s := &Service{
		calendar:     cal,
		store:        st,
		rules:        cfg.Rules,
		daysAhead:    clampDays(cfg.DaysAhead),
		businessName: cfg.BusinessName,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.WithComponent(s.logger, "booking")
	return s
}

// Rules returns the business rules slots are generated from.
func (s *Service) Rules() slots.Rules {
	return s.rules
}

func (s *Service) location() *time.Location {
	if s.rules.Location == nil {
		return time.UTC
	}
	return s.rules.Location
}

func clampDays(days int) int {
	switch {
	case days <= 0:
		return DefaultDaysAhead
	case days > MaxDaysAhead:
		return MaxDaysAhead
	default:
		return days
	}
}

// failure describes how an error is reported.
type failure struct {
	code        string
	outcome     string
	message     string
	shouldRetry bool
}

func classify(err error) failure {
	switch {
	case errors.Is(err, ErrIncompleteBookingRequest):
		return failure{code: CodeInvalidRequest, outcome: instrumentation.BookingInvalid, message: msgInvalidRequest}
	case errors.Is(err, ErrSlotNoLongerAvailable):
		return failure{code: CodeSlotUnavailable, outcome: instrumentation.BookingConflict, message: msgSlotTaken, shouldRetry: true}
	case errors.Is(err, store.ErrNoActiveAccount):
		return failure{code: CodeNoActiveAccount, outcome: instrumentation.BookingNoAccount, message: msgNoAccount}
	case errors.Is(err, google.ErrReauthorizationRequired):
		return failure{code: CodeReauthorizationRequired, outcome: instrumentation.BookingReauth, message: msgCallback}
	case errors.Is(err, calendar.ErrCalendarUnavailable):
		return failure{code: CodeCalendarUnavailable, outcome: instrumentation.BookingUnavailable, message: msgCalendarDown}
	default:
		return failure{code: CodeInternal, outcome: instrumentation.BookingFailed, message: msgCallback}
	}
}
