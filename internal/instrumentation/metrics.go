package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrFunction  = "function"
	attrOutcome   = "outcome"
	attrDomain    = "account_domain"
)

// Metrics provides methods for recording observability metrics.
// A nil or zero Metrics records nothing.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// OAuth metrics
	oauthAuthTotal         metric.Int64Counter
	oauthTokenRefreshTotal metric.Int64Counter

	// Scheduling metrics
	slotQueriesTotal      metric.Int64Counter
	slotsOffered          metric.Int64Histogram
	bookingsTotal         metric.Int64Counter
	partialCommitsTotal   metric.Int64Counter
	functionCallsTotal    metric.Int64Counter
	functionCallDuration  metric.Float64Histogram
	toolInvocationsTotal  metric.Int64Counter
	toolInvocationLatency metric.Float64Histogram

	detailedLabels bool
}

var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.httpRequestsTotal, "http_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.googleAPIOperationsTotal, "google_api_operations_total", "Total number of Google API operations", "{operation}"},
		{&m.oauthAuthTotal, "oauth_auth_total", "Total number of calendar account connection attempts", "{attempt}"},
		{&m.oauthTokenRefreshTotal, "oauth_token_refresh_total", "Total number of OAuth token refresh attempts", "{attempt}"},
		{&m.slotQueriesTotal, "slot_queries_total", "Total number of availability queries", "{query}"},
		{&m.bookingsTotal, "bookings_total", "Total number of booking attempts by outcome", "{booking}"},
		{&m.partialCommitsTotal, "booking_partial_commits_total", "Bookings whose calendar event was created but not persisted", "{booking}"},
		{&m.functionCallsTotal, "voice_function_calls_total", "Total number of voice function calls", "{call}"},
		{&m.toolInvocationsTotal, "mcp_tool_invocations_total", "Total number of MCP tool invocations", "{invocation}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}

	histograms := []struct {
		dst     *metric.Float64Histogram
		name    string
		desc    string
		buckets []float64
	}{
		{&m.httpRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds",
			[]float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}},
		{&m.googleAPIOperationDuration, "google_api_operation_duration_seconds", "Google API operation duration in seconds", durationBuckets},
		{&m.functionCallDuration, "voice_function_call_duration_seconds", "Voice function call duration in seconds", durationBuckets},
		{&m.toolInvocationLatency, "mcp_tool_duration_seconds", "MCP tool execution duration in seconds", durationBuckets},
	}
	for _, h := range histograms {
		hist, err := meter.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(h.buckets...),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s histogram: %w", h.name, err)
		}
		*h.dst = hist
	}

	var err error
	m.slotsOffered, err = meter.Int64Histogram(
		"slots_available",
		metric.WithDescription("Number of bookable slots found per availability query"),
		metric.WithUnit("{slot}"),
		metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 20, 40, 80),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create slots_available histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGoogleAPIOperation records a Google API operation with service, operation,
// status, and duration.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.googleAPIOperationsTotal.Add(ctx, 1, attrs)
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordOAuthAuth records a calendar account connection attempt.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m == nil || m.oauthAuthTotal == nil {
		return
	}
	m.oauthAuthTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordOAuthTokenRefresh records an OAuth token refresh attempt with result.
// Result should be one of: "success", "failure", "revoked"
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return
	}
	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordSlotQuery records an availability query and how many slots it found.
func (m *Metrics) RecordSlotQuery(ctx context.Context, status string, available int) {
	if m == nil || m.slotQueriesTotal == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.slotQueriesTotal.Add(ctx, 1, attrs)
	if status == StatusSuccess {
		m.slotsOffered.Record(ctx, int64(available))
	}
}

// RecordBooking records the terminal outcome of a booking attempt. The
// account email only contributes its domain, and only with detailed labels.
func (m *Metrics) RecordBooking(ctx context.Context, outcome, accountEmail string) {
	if m == nil || m.bookingsTotal == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(attrOutcome, outcome)}
	if m.detailedLabels && accountEmail != "" {
		attrs = append(attrs, attribute.String(attrDomain, ExtractUserDomain(accountEmail)))
	}
	m.bookingsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPartialCommit records a booking whose external event outlived a
// failed local write. Outcome is "compensated" or "orphaned".
func (m *Metrics) RecordPartialCommit(ctx context.Context, outcome string) {
	if m == nil || m.partialCommitsTotal == nil {
		return
	}
	m.partialCommitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

// RecordFunctionCall records a voice function call.
func (m *Metrics) RecordFunctionCall(ctx context.Context, function, status string, duration time.Duration) {
	if m == nil || m.functionCallsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrFunction, function),
		attribute.String(attrStatus, status),
	)
	m.functionCallsTotal.Add(ctx, 1, attrs)
	m.functionCallDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolInvocationLatency.Record(ctx, duration.Seconds(), attrs)
}
