package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// EventInput represents the input for creating or updating a calendar event.
// On update, zero fields are left unchanged.
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	// TimeZone is the IANA zone the event is displayed in (default: UTC)
	TimeZone  string
	Attendees []string
}

// toEvent builds the API event for input, skipping zero fields.
func toEvent(input EventInput) *calendar.Event {
	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
	}

	tz := input.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	if !input.Start.IsZero() {
		event.Start = &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: tz,
		}
	}
	if !input.End.IsZero() {
		event.End = &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: tz,
		}
	}

	for _, email := range input.Attendees {
		if email == "" {
			continue
		}
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}

	return event
}

// notifiesAttendees reports whether the event has someone to send updates to.
func notifiesAttendees(event *calendar.Event) bool {
	return len(event.Attendees) > 0
}
