// Package booking orchestrates availability queries and bookings.
//
// An availability query resolves the caller's date phrase, reads busy
// periods over the lookahead window, generates and filters slots and returns
// a short labelled list. A booking validates the caller's details, re-checks
// the chosen interval against recorded appointments and a narrow free/busy
// re-query, then creates the calendar event and records the appointment.
//
// Results are always structured: failures carry a message that can be read
// to the caller and, for lost races, ShouldRetry. When the event is created
// but cannot be recorded, the record write is retried once and the event is
// then deleted; the condition is logged as partial_commit and counted.
package booking
