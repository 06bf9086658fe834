package instrumentation

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sampleAudit(outcome string) *BookingAudit {
	return &BookingAudit{
		CallID:       "call-1",
		Channel:      "voice",
		CustomerName: "Jane Doe",
		Phone:        "555-123-4567",
		AccountEmail: "owner@example.com",
		EventID:      "evt-1",
		Start:        time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC),
		Outcome:      outcome,
		Duration:     250 * time.Millisecond,
	}
}

func TestAuditLogger_MasksPIIByDefault(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)), AuditLoggingConfig{Enabled: true})

	al.LogBooking(sampleAudit(BookingConfirmed))

	out := buf.String()
	assert.Contains(t, out, "booking_audit")
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "******4567")
	assert.Contains(t, out, "user_hash=user:")
	assert.NotContains(t, out, "Jane Doe")
	assert.NotContains(t, out, "owner@example.com")
}

func TestAuditLogger_IncludePII(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)), AuditLoggingConfig{Enabled: true, IncludePII: true})

	b := sampleAudit(BookingConflict)
	b.Error = "slot no longer available"
	al.LogBooking(b)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "Jane Doe")
	assert.Contains(t, out, "owner@example.com")
	assert.Contains(t, out, "slot no longer available")
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)), AuditLoggingConfig{Enabled: false})
	al.LogBooking(sampleAudit(BookingConfirmed))
	assert.Empty(t, strings.TrimSpace(buf.String()))

	var nilLogger *AuditLogger
	nilLogger.LogBooking(sampleAudit(BookingConfirmed))
}
