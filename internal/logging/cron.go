package logging

import (
	"fmt"
	"log/slog"
)

// CronLogger satisfies the cron.Logger interface of robfig/cron on top of slog.
// Scheduler chatter goes to debug, job panics and errors to error.
type CronLogger struct {
	logger *slog.Logger
}

// NewCronLogger wraps logger for use with cron.WithLogger.
func NewCronLogger(logger *slog.Logger) *CronLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &CronLogger{logger: logger.With(slog.String(KeyComponent, "scheduler"))}
}

// Info logs routine scheduler messages.
func (c *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debug(msg, normalizeKV(keysAndValues)...)
}

// Error logs scheduler failures.
func (c *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]any{Err(err)}, normalizeKV(keysAndValues)...)
	c.logger.Error(msg, args...)
}

// normalizeKV turns cron's alternating key/value pairs into slog args,
// stringifying non-string keys.
func normalizeKV(kv []interface{}) []any {
	out := make([]any, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		out = append(out, slog.Any(key, kv[i+1]))
	}
	return out
}
