package instrumentation

import (
	"fmt"
	"os"
	"strconv"
)

// Exporter types.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Enabled turns metrics and tracing on. INSTRUMENTATION_ENABLED=false
	// disables both.
	Enabled bool

	// MetricsExporter is "prometheus" (default), "otlp" or "stdout".
	MetricsExporter string
	// TracingExporter is "none" (default), "otlp" or "stdout".
	TracingExporter string

	// OTLPEndpoint is the collector host:port, without scheme.
	OTLPEndpoint string
	// OTLPInsecure sends OTLP over plain HTTP. Local development only.
	OTLPInsecure bool

	// TraceSamplingRate is the parent-based ratio in [0, 1].
	TraceSamplingRate float64

	// DetailedLabels adds the account domain to booking metrics.
	// Keep disabled when several businesses share one metrics backend.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if booking audit logging is active (default: true)
	Enabled bool

	// IncludePII controls whether caller names, phone numbers and the account
	// email appear in audit records. When false (default), phones are masked
	// and the account email is hashed.
	IncludePII bool
}

// DefaultConfig returns the configuration read from the process environment.
func DefaultConfig() Config {
	return ConfigFromEnv(os.LookupEnv)
}

// ConfigFromEnv builds a Config from environment variables. lookup is
// usually os.LookupEnv. Unparseable values fall back to the defaults.
func ConfigFromEnv(lookup func(string) (string, bool)) Config {
	str := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}
	boolean := func(key string, def bool) bool {
		if b, err := strconv.ParseBool(str(key, "")); err == nil {
			return b
		}
		return def
	}
	float := func(key string, def float64) float64 {
		if f, err := strconv.ParseFloat(str(key, ""), 64); err == nil {
			return f
		}
		return def
	}

	return Config{
		ServiceName:       str("OTEL_SERVICE_NAME", "slotkeeper"),
		ServiceVersion:    "unknown",
		Enabled:           boolean("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   str("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   str("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      boolean("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: float("OTEL_TRACES_SAMPLER_ARG", 0.1),
		DetailedLabels:    boolean("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    boolean("AUDIT_LOGGING_ENABLED", true),
			IncludePII: boolean("AUDIT_LOGGING_INCLUDE_PII", false),
		},
	}
}

// Validate checks exporter names, the sampling rate and that OTLP
// exporters have an endpoint.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}
	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.OTLPEndpoint == "" && (c.MetricsExporter == ExporterOTLP || c.TracingExporter == ExporterOTLP) {
		return fmt.Errorf("OTLP endpoint is required when using an OTLP exporter; set OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	return nil
}

// Metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"
	OAuthResultRevoked = "revoked"

	ServiceCalendar = "calendar"
	ServiceUserinfo = "userinfo"

	BookingConfirmed   = "confirmed"
	BookingConflict    = "conflict"
	BookingInvalid     = "invalid"
	BookingNoAccount   = "no_account"
	BookingUnavailable = "unavailable"
	BookingReauth      = "reauth_required"
	BookingFailed      = "failed"

	PartialCommitCompensated = "compensated"
	PartialCommitOrphaned    = "orphaned"
)
