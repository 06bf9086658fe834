package calendar

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/slotkeeper/internal/instrumentation"
	"github.com/teemow/slotkeeper/internal/logging"
	"github.com/teemow/slotkeeper/internal/slots"
	"github.com/teemow/slotkeeper/internal/store"
)

// ErrCalendarUnavailable is returned when the calendar provider could not be
// reached or rejected the request.
var ErrCalendarUnavailable = errors.New("calendar unavailable")

// DefaultTimeout bounds each provider call.
const DefaultTimeout = 10 * time.Second

// CredentialSource returns an access token for an account that is valid for
// at least the duration of one provider call.
type CredentialSource interface {
	GetValidCredential(ctx context.Context, account *store.Account) (*oauth2.Token, error)
}

// Gateway performs calendar operations on behalf of a connected account.
type Gateway struct {
	creds      CredentialSource
	timeout    time.Duration
	httpClient *http.Client
	endpoint   string
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithHTTPClient sets the base client the OAuth transport wraps.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.httpClient = c }
}

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(g *Gateway) { g.endpoint = endpoint }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// NewGateway creates a Gateway that authenticates through creds.
func NewGateway(creds CredentialSource, opts ...Option) *Gateway {
	g := &Gateway{
		creds:   creds,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.httpClient == nil {
		g.httpClient = defaultHTTPClient()
	}
	g.logger = logging.WithComponent(g.logger, "calendar")
	return g
}

// defaultHTTPClient returns the base client shared by all calls of a
// Gateway. The transport keeps the default idle connection limits.
func defaultHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// Force HTTP/1.1 by disabling HTTP/2
	transport.ForceAttemptHTTP2 = false
	transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	return &http.Client{Transport: transport}
}

// service builds a Calendar service authorized for account. Credential
// errors are returned unchanged.
func (g *Gateway) service(ctx context.Context, account *store.Account) (*calendar.Service, error) {
	if account == nil {
		return nil, store.ErrNoActiveAccount
	}
	token, err := g.creds.GetValidCredential(ctx, account)
	if err != nil {
		return nil, err
	}

	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, g.httpClient), oauth2.StaticTokenSource(token))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return svc, nil
}

// do runs one provider call with its own timeout, span and metrics.
func (g *Gateway) do(ctx context.Context, account *store.Account, operation string, fn func(context.Context, *calendar.Service) error) error {
	svc, err := g.service(ctx, account)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, operation)
	defer span.End()

	start := time.Now()
	err = fn(ctx, svc)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
		err = &callError{err: err}
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	g.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, operation, status, time.Since(start))
	return err
}

func (g *Gateway) unavailable(account *store.Account, operation string, err error, attrs ...any) error {
	args := []any{
		logging.Operation(operation),
		logging.UserHash(account.Email),
		logging.Err(err),
	}
	g.logger.Warn("calendar request failed", append(args, attrs...)...)
	return fmt.Errorf("%w: %s: %w", ErrCalendarUnavailable, operation, err)
}

// BusyPeriods returns the busy intervals of the account's calendar within
// [start, end).
func (g *Gateway) BusyPeriods(ctx context.Context, account *store.Account, start, end time.Time) ([]slots.BusyPeriod, error) {
	calendarID := calendarIDOf(account)
	var busy []slots.BusyPeriod

	err := g.do(ctx, account, instrumentation.OperationFreeBusy, func(ctx context.Context, svc *calendar.Service) error {
		query := &calendar.FreeBusyRequest{
			TimeMin: start.UTC().Format(time.RFC3339),
			TimeMax: end.UTC().Format(time.RFC3339),
			Items:   []*calendar.FreeBusyRequestItem{{Id: calendarID}},
		}
		result, err := svc.Freebusy.Query(query).Context(ctx).Do()
		if err != nil {
			return err
		}

		cal, ok := result.Calendars[calendarID]
		if !ok {
			return fmt.Errorf("calendar %q missing from freebusy response", calendarID)
		}
		if len(cal.Errors) > 0 {
			reasons := make([]string, 0, len(cal.Errors))
			for _, e := range cal.Errors {
				reasons = append(reasons, e.Reason)
			}
			return fmt.Errorf("freebusy errors: %s", strings.Join(reasons, ", "))
		}

		for _, b := range cal.Busy {
			bs, err := time.Parse(time.RFC3339, b.Start)
			if err != nil {
				return fmt.Errorf("invalid busy start %q: %w", b.Start, err)
			}
			be, err := time.Parse(time.RFC3339, b.End)
			if err != nil {
				return fmt.Errorf("invalid busy end %q: %w", b.End, err)
			}
			busy = append(busy, slots.BusyPeriod{Start: bs, End: be})
		}
		return nil
	})
	if err != nil {
		if !isCalendarCallError(err) {
			return nil, err
		}
		return nil, g.unavailable(account, instrumentation.OperationFreeBusy, err, logging.Window(start, end)...)
	}

	args := []any{logging.UserHash(account.Email), slog.Int("busy", len(busy))}
	g.logger.Debug("busy periods fetched", append(args, logging.Window(start, end)...)...)
	return busy, nil
}

// CreateEvent inserts an event and returns its id. Attendees are notified.
func (g *Gateway) CreateEvent(ctx context.Context, account *store.Account, input EventInput) (string, error) {
	calendarID := calendarIDOf(account)
	event := toEvent(input)
	var id string

	err := g.do(ctx, account, instrumentation.OperationCreate, func(ctx context.Context, svc *calendar.Service) error {
		call := svc.Events.Insert(calendarID, event)
		if notifiesAttendees(event) {
			call = call.SendUpdates("all")
		}
		created, err := call.Context(ctx).Do()
		if err != nil {
			return err
		}
		if created.Id == "" {
			return fmt.Errorf("provider returned an event without id")
		}
		id = created.Id
		return nil
	})
	if err != nil {
		if !isCalendarCallError(err) {
			return "", err
		}
		return "", g.unavailable(account, instrumentation.OperationCreate, err, logging.Window(input.Start, input.End)...)
	}

	g.logger.Info("calendar event created", logging.UserHash(account.Email), logging.EventID(id))
	return id, nil
}

// UpdateEvent patches the non-zero fields of input onto an existing event.
func (g *Gateway) UpdateEvent(ctx context.Context, account *store.Account, eventID string, input EventInput) error {
	calendarID := calendarIDOf(account)
	patch := toEvent(input)

	err := g.do(ctx, account, instrumentation.OperationUpdate, func(ctx context.Context, svc *calendar.Service) error {
		call := svc.Events.Patch(calendarID, eventID, patch)
		if notifiesAttendees(patch) {
			call = call.SendUpdates("all")
		}
		_, err := call.Context(ctx).Do()
		return err
	})
	if err != nil {
		if !isCalendarCallError(err) {
			return err
		}
		return g.unavailable(account, instrumentation.OperationUpdate, err, logging.EventID(eventID))
	}
	return nil
}

// DeleteEvent deletes an event. An event that is already gone is not an error.
func (g *Gateway) DeleteEvent(ctx context.Context, account *store.Account, eventID string) error {
	calendarID := calendarIDOf(account)

	err := g.do(ctx, account, instrumentation.OperationDelete, func(ctx context.Context, svc *calendar.Service) error {
		err := svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
		if isGone(err) {
			return nil
		}
		return err
	})
	if err != nil {
		if !isCalendarCallError(err) {
			return err
		}
		return g.unavailable(account, instrumentation.OperationDelete, err, logging.EventID(eventID))
	}

	g.logger.Info("calendar event deleted", logging.UserHash(account.Email), logging.EventID(eventID))
	return nil
}

// callError marks errors raised inside a provider call, as opposed to
// credential errors returned before the call.
type callError struct{ err error }

func (e *callError) Error() string { return e.err.Error() }
func (e *callError) Unwrap() error { return e.err }

func isCalendarCallError(err error) bool {
	var ce *callError
	return errors.As(err, &ce)
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}

func calendarIDOf(account *store.Account) string {
	if account == nil || account.CalendarID == "" {
		return store.DefaultCalendarID
	}
	return account.CalendarID
}
