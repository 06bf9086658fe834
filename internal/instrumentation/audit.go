package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/slotkeeper/internal/logging"
)

// BookingAudit captures one booking attempt for the audit trail.
//
// Customer name and phone, plus the account email, are PII. They are only
// written verbatim when the AuditLogger is configured with IncludePII.
type BookingAudit struct {
	CallID       string
	Channel      string
	CustomerName string
	Phone        string
	AccountEmail string
	EventID      string
	Start        time.Time
	Outcome      string
	Error        string
	Duration     time.Duration
	TraceID      string
}

// WithSpanContext copies the trace id of the current span.
func (b *BookingAudit) WithSpanContext(ctx context.Context) *BookingAudit {
	b.TraceID = GetTraceID(ctx)
	return b
}

// Success reports whether the booking was confirmed.
func (b *BookingAudit) Success() bool {
	return b.Outcome == BookingConfirmed
}

func (b *BookingAudit) attrs(includePII bool) []any {
	attrs := []any{
		slog.String("outcome", b.Outcome),
		slog.Duration(logging.KeyDuration, b.Duration),
	}
	if !b.Start.IsZero() {
		attrs = append(attrs, slog.String("start", b.Start.UTC().Format(time.RFC3339)))
	}
	if b.Channel != "" {
		attrs = append(attrs, slog.String("channel", b.Channel))
	}
	if b.CallID != "" {
		attrs = append(attrs, logging.CallID(b.CallID))
	}
	if b.EventID != "" {
		attrs = append(attrs, logging.EventID(b.EventID))
	}
	if includePII {
		attrs = append(attrs,
			slog.String("customer", b.CustomerName),
			slog.String("phone", b.Phone),
			slog.String("account", b.AccountEmail),
		)
	} else {
		attrs = append(attrs,
			slog.String("phone", logging.MaskPhone(b.Phone)),
			logging.UserHash(b.AccountEmail),
		)
	}
	if b.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", b.TraceID))
	}
	if b.Error != "" {
		attrs = append(attrs, slog.String(logging.KeyError, b.Error))
	}
	return attrs
}

// AuditLogger writes booking audit records.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger. A nil logger uses slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String(logging.KeyComponent, "audit")),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogBooking writes one audit record. Safe on a nil receiver.
func (al *AuditLogger) LogBooking(b *BookingAudit) {
	if al == nil || !al.enabled || b == nil {
		return
	}
	if b.Success() {
		al.logger.Info("booking_audit", b.attrs(al.includePII)...)
	} else {
		al.logger.Warn("booking_audit", b.attrs(al.includePII)...)
	}
}
