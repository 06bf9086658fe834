package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		debug     bool
		wantJSON  bool
		wantDebug bool
	}{
		{name: "text info", format: FormatText},
		{name: "json info", format: FormatJSON, wantJSON: true},
		{name: "json debug", format: "JSON", debug: true, wantJSON: true, wantDebug: true},
		{name: "unknown falls back to text", format: "xml", debug: true, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.format, tt.debug)
			logger.Debug("debug line")
			logger.Info("info line", Operation("test"))

			out := buf.String()
			if got := strings.Contains(out, "debug line"); got != tt.wantDebug {
				t.Errorf("debug line present = %v, want %v", got, tt.wantDebug)
			}
			lines := strings.Split(strings.TrimSpace(out), "\n")
			last := lines[len(lines)-1]
			isJSON := json.Valid([]byte(last))
			if isJSON != tt.wantJSON {
				t.Errorf("json output = %v, want %v (%q)", isJSON, tt.wantJSON, last)
			}
		})
	}
}

func TestWithCall(t *testing.T) {
	logger := slog.Default()
	if WithCall(logger, "") != logger {
		t.Error("WithCall with empty id should return the same logger")
	}
	if WithCall(logger, "call-1") == logger {
		t.Error("WithCall with id should return a derived logger")
	}
}

func TestAttrKeys(t *testing.T) {
	tests := []struct {
		name  string
		attr  slog.Attr
		key   string
		value string
	}{
		{"operation", Operation("booking.commit"), KeyOperation, "booking.commit"},
		{"component", Component("gateway"), KeyComponent, "gateway"},
		{"account id", AccountID(42), KeyAccountID, "42"},
		{"function", Function("bookAppointment"), KeyFunction, "bookAppointment"},
		{"call id", CallID("call-1"), KeyCallID, "call-1"},
		{"event id", EventID("evt-1"), KeyEventID, "evt-1"},
		{"status", Status(StatusSuccess), KeyStatus, StatusSuccess},
		{"duration", Duration(1500 * time.Millisecond), KeyDuration, "1.5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.key {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.key)
			}
			if tt.attr.Value.String() != tt.value {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.value)
			}
		})
	}
}

func TestWindow(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	start := time.Date(2024, 1, 15, 9, 0, 0, 0, loc)
	attrs := Window(start, start.Add(time.Hour))
	if len(attrs) != 2 {
		t.Fatalf("Window returned %d attrs, want 2", len(attrs))
	}
	first := attrs[0].(slog.Attr)
	if first.Key != KeyWindowStart || first.Value.String() != "2024-01-15T14:00:00Z" {
		t.Errorf("window start = %s=%s", first.Key, first.Value.String())
	}
	second := attrs[1].(slog.Attr)
	if second.Key != KeyWindowEnd || second.Value.String() != "2024-01-15T15:00:00Z" {
		t.Errorf("window end = %s=%s", second.Key, second.Value.String())
	}
}

func TestErr(t *testing.T) {
	err := errors.New("test error")
	attr := Err(err)
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}

	// Empty Group has empty key
	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestAnonymizeEmail(t *testing.T) {
	tests := []struct {
		email    string
		wantLen  int
		hasValue bool
	}{
		{"owner@plumbing.example", 21, true}, // "user:" + 16 hex chars
		{"calendar@gmail.com", 21, true},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			result := AnonymizeEmail(tt.email)
			if tt.hasValue {
				if len(result) != tt.wantLen {
					t.Errorf("AnonymizeEmail(%q) length = %d, want %d", tt.email, len(result), tt.wantLen)
				}
				if result[:5] != "user:" {
					t.Errorf("AnonymizeEmail(%q) should start with 'user:', got %q", tt.email, result)
				}
			} else if result != "" {
				t.Errorf("AnonymizeEmail(%q) = %q, want empty string", tt.email, result)
			}
		})
	}

	if AnonymizeEmail("Owner@Example.com") != AnonymizeEmail("owner@example.com") {
		t.Error("AnonymizeEmail should ignore case")
	}
	if AnonymizeEmail("a@example.com") == AnonymizeEmail("b@example.com") {
		t.Error("Different emails should produce different hashes")
	}
}

func TestUserHash(t *testing.T) {
	attr := UserHash("owner@example.com")
	if attr.Key != KeyUserHash {
		t.Errorf("UserHash key = %q, want %q", attr.Key, KeyUserHash)
	}
	if len(attr.Value.String()) != 21 {
		t.Errorf("UserHash value length = %d, want 21", len(attr.Value.String()))
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[token:6 chars]"},
		{"ya29.a_very_long_token", "[token:22 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.expected)
			}
		})
	}
}

func TestMaskPhone(t *testing.T) {
	tests := []struct {
		phone    string
		expected string
	}{
		{"555-123-4567", "******4567"},
		{"+1 (555) 123-4567", "*******4567"},
		{"1234", "****"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			if got := MaskPhone(tt.phone); got != tt.expected {
				t.Errorf("MaskPhone(%q) = %q, want %q", tt.phone, got, tt.expected)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"owner@example.com", "example.com"},
		{"invalid", ""},
		{"", ""},
		{"user@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := ExtractDomain(tt.email); got != tt.expected {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.email, got, tt.expected)
			}
		})
	}
}
