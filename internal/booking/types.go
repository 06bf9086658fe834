package booking

import (
	"errors"
	"time"
)

var (
	// ErrSlotNoLongerAvailable is returned when the chosen interval was taken
	// between the availability query and the booking.
	ErrSlotNoLongerAvailable = errors.New("slot no longer available")

	// ErrIncompleteBookingRequest is returned when required caller details
	// are missing or malformed.
	ErrIncompleteBookingRequest = errors.New("incomplete booking request")

	// ErrPartialCommit is returned when the calendar event was created but
	// the appointment could not be recorded.
	ErrPartialCommit = errors.New("calendar event created but appointment not recorded")
)

// Error codes carried in the error field of failed results.
const (
	CodeInvalidRequest          = "invalid_request"
	CodeSlotUnavailable         = "slot_unavailable"
	CodeNoActiveAccount         = "no_active_account"
	CodeReauthorizationRequired = "reauthorization_required"
	CodeCalendarUnavailable     = "calendar_unavailable"
	CodePartialCommit           = "partial_commit"
	CodeInternal                = "internal_error"
)

// Window limits for availability queries.
const (
	DefaultDaysAhead = 7
	MaxDaysAhead     = 30
)

// AvailabilityRequest asks for open slots.
type AvailabilityRequest struct {
	// PreferredDate is a phrase such as "tomorrow", "next friday" or
	// "2024-01-15". Empty means no preference.
	PreferredDate string `json:"preferredDate,omitempty"`
	// TimeOfDay is "morning", "afternoon", "evening" or "any".
	TimeOfDay string `json:"timeOfDay,omitempty"`
	// DaysAhead overrides the default window length.
	DaysAhead int    `json:"daysAhead,omitempty"`
	CallID    string `json:"-"`
}

// SlotOption is a slot as offered to a caller.
type SlotOption struct {
	Start   time.Time `json:"startTime"`
	End     time.Time `json:"endTime"`
	Display string    `json:"display"`
	Date    string    `json:"date"`
	Time    string    `json:"time"`
	Label   string    `json:"label"`
}

// AvailabilityResult is the answer to an availability request. It is always
// safe to hand to the caller.
type AvailabilityResult struct {
	Success        bool         `json:"success"`
	Slots          []SlotOption `json:"slots"`
	TotalAvailable int          `json:"totalAvailable"`
	Message        string       `json:"message"`
	// Error is one of the Code constants.
	Error string `json:"error,omitempty"`

	// Cause is the underlying error of a failed request.
	Cause error `json:"-"`
}

// BookingRequest asks to book the slot starting at StartTime.
type BookingRequest struct {
	// StartTime is an RFC3339 instant, usually a SlotOption.Start.
	StartTime    string `json:"startTime"`
	CustomerName string `json:"customerName"`
	PhoneNumber  string `json:"phoneNumber"`
	Email        string `json:"email,omitempty"`
	Address      string `json:"address"`
	Issue        string `json:"issue"`
	CallID       string `json:"-"`
}

// AppointmentInfo describes a confirmed appointment.
type AppointmentInfo struct {
	ID           int64     `json:"id"`
	EventID      string    `json:"eventId"`
	Start        time.Time `json:"startTime"`
	End          time.Time `json:"endTime"`
	Display      string    `json:"display"`
	CustomerName string    `json:"customerName"`
}

// BookingResult is the terminal state of a booking: confirmed when Success
// is set, failed otherwise.
type BookingResult struct {
	Success     bool             `json:"success"`
	Appointment *AppointmentInfo `json:"appointment,omitempty"`
	Message     string           `json:"message"`
	// Error is one of the Code constants.
	Error string `json:"error,omitempty"`
	// ShouldRetry tells the caller to search for another slot.
	ShouldRetry bool `json:"shouldRetry,omitempty"`

	// Cause is the underlying error of a failed booking.
	Cause error `json:"-"`
}
