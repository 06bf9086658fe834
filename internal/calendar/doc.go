// Package calendar is the gateway to the business's Google Calendar.
//
// A Gateway reads free/busy state and creates, patches and deletes events for
// a connected account. Every call fetches a credential first, runs under its
// own timeout and is traced and counted. Provider failures are reported as
// ErrCalendarUnavailable; credential errors pass through unchanged. The
// gateway never retries.
//
// Example usage:
//
//	gw := calendar.NewGateway(credentials, calendar.WithMetrics(metrics))
//	busy, err := gw.BusyPeriods(ctx, account, from, to)
//	if errors.Is(err, calendar.ErrCalendarUnavailable) {
//	    // degrade
//	}
package calendar
