// Package instrumentation provides OpenTelemetry metrics, tracing and booking
// audit records for slotkeeper.
//
// # Metrics
//
// Server/HTTP:
//   - http_requests_total, http_request_duration_seconds
//
// Google API:
//   - google_api_operations_total: by service, operation, status
//   - google_api_operation_duration_seconds
//
// Calendar account tokens:
//   - oauth_auth_total: account connection attempts by result
//   - oauth_token_refresh_total: refreshes by result (success, failure, revoked)
//
// Scheduling:
//   - slot_queries_total, slots_available
//   - bookings_total: by outcome
//   - booking_partial_commits_total: events created but not persisted, by
//     compensated or orphaned
//   - voice_function_calls_total, voice_function_call_duration_seconds
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//
// # Tracing
//
// Spans are created for voice function calls (voice.<function>), MCP tool
// invocations (tool.<name>) and Google API calls (google.<service>.<operation>).
//
// # Configuration
//
// Environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_EXPORTER_OTLP_INSECURE: send OTLP over plain HTTP (development only)
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: slotkeeper)
//   - AUDIT_LOGGING_INCLUDE_PII: write caller details unmasked (default: false)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordBooking(ctx, instrumentation.BookingConfirmed, account.Email)
package instrumentation
