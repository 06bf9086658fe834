package voice

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/slotkeeper/internal/booking"
	"github.com/teemow/slotkeeper/internal/instrumentation"
	"github.com/teemow/slotkeeper/internal/logging"
)

const (
	// DefaultFunctionTimeout bounds a single function invocation.
	DefaultFunctionTimeout = 20 * time.Second

	maxBodyBytes = 1 << 20

	codeUnknownFunction = "unknown_function"

	msgRepeat = "I'm sorry, I didn't catch that. Could you repeat it?"
)

// Booker is the booking surface exposed to callers.
type Booker interface {
	AvailableSlots(ctx context.Context, req booking.AvailabilityRequest) booking.AvailabilityResult
	Book(ctx context.Context, req booking.BookingRequest) booking.BookingResult
}

// Handler serves POST /webhook/voice.
type Handler struct {
	booker  Booker
	timeout time.Duration
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// Option configures a Handler.
type Option func(*Handler)

// WithTimeout sets the per-invocation budget.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler returns a webhook handler dispatching to b.
func NewHandler(b Booker, opts ...Option) *Handler {
	h := &Handler{
		booker:  b,
		timeout: DefaultFunctionTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logging.WithComponent(h.logger, "voice")
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResult{Error: "method not allowed"})
		return
	}

	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.logger.Warn("malformed webhook body", logging.Err(err))
		writeJSON(w, http.StatusBadRequest, errorResult{Error: "invalid JSON body"})
		return
	}

	if req.Message.Type != MessageTypeFunctionCall || req.Message.FunctionCall == nil {
		h.logger.Debug("ignoring webhook message", "type", req.Message.Type)
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}

	callID := req.Message.Call.ID
	if callID == "" {
		callID = uuid.NewString()
	}
	result := h.Invoke(r.Context(), callID, *req.Message.FunctionCall)
	writeJSON(w, http.StatusOK, Response{Result: result})
}

// Invoke runs one function call under the function budget and returns a
// JSON-serializable result. It never fails: problems are expressed in the
// result itself.
func (h *Handler) Invoke(ctx context.Context, callID string, fc FunctionCall) any {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	ctx, span := instrumentation.StartFunctionSpan(ctx, fc.Name, callID)
	defer span.End()

	logger := logging.WithCall(h.logger, callID).With(logging.Function(fc.Name))
	started := time.Now()

	result, ok := h.dispatch(ctx, callID, fc)

	status := instrumentation.StatusSuccess
	if !ok {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, errors.New("function call unsuccessful"))
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	elapsed := time.Since(started)
	h.metrics.RecordFunctionCall(ctx, fc.Name, status, elapsed)
	logger.Info("function call handled", logging.Status(status), logging.Duration(elapsed))
	return result
}

func (h *Handler) dispatch(ctx context.Context, callID string, fc FunctionCall) (any, bool) {
	switch fc.Name {
	case FunctionGetAvailableSlots:
		var p availabilityParams
		if err := decodeParams(fc.Parameters, &p); err != nil {
			h.logger.Warn("invalid function parameters", logging.Function(fc.Name), logging.Err(err))
			return booking.AvailabilityResult{
				Slots:   []booking.SlotOption{},
				Message: msgRepeat,
				Error:   booking.CodeInvalidRequest,
			}, false
		}
		res := h.booker.AvailableSlots(ctx, p.request(callID))
		return res, res.Success

	case FunctionBookAppointment:
		var p bookingParams
		if err := decodeParams(fc.Parameters, &p); err != nil {
			h.logger.Warn("invalid function parameters", logging.Function(fc.Name), logging.Err(err))
			return booking.BookingResult{
				Message: msgRepeat,
				Error:   booking.CodeInvalidRequest,
			}, false
		}
		res := h.booker.Book(ctx, p.request(callID))
		return res, res.Success

	default:
		h.logger.Warn("unknown function", logging.Function(fc.Name))
		return errorResult{Error: codeUnknownFunction}, false
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
