// Package logging provides structured logging utilities for slotkeeper.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "booking.commit")
//	logger.Info("appointment confirmed",
//	    logging.EventID(eventID),
//	    logging.Status(logging.StatusSuccess))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("token refreshed",
//	    logging.UserHash(account.Email))
//
// # Security Considerations
//
//   - Account emails are hashed to prevent PII leakage while allowing correlation
//   - Tokens are never logged directly
//   - Caller phone numbers are masked down to their last four digits
package logging
