package voice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/teemow/slotkeeper/internal/booking"
)

// Function names understood by the webhook.
const (
	FunctionGetAvailableSlots = "getAvailableSlots"
	FunctionBookAppointment   = "bookAppointment"
)

// MessageTypeFunctionCall is the only message type that carries work.
const MessageTypeFunctionCall = "function-call"

// Request is the webhook envelope.
type Request struct {
	Message Message `json:"message"`
}

// Message is one platform event.
type Message struct {
	Type         string        `json:"type"`
	Call         Call          `json:"call"`
	FunctionCall *FunctionCall `json:"functionCall,omitempty"`
}

// Call identifies the phone call a message belongs to.
type Call struct {
	ID string `json:"id"`
}

// FunctionCall names a function and its raw parameters.
type FunctionCall struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// Response wraps a function result.
type Response struct {
	Result any `json:"result"`
}

// errorResult is returned for calls that never reach the booking service.
type errorResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type availabilityParams struct {
	PreferredDate flexString `json:"preferredDate"`
	TimeOfDay     flexString `json:"timeOfDay"`
	DaysAhead     flexInt    `json:"daysAhead"`
}

func (p availabilityParams) request(callID string) booking.AvailabilityRequest {
	return booking.AvailabilityRequest{
		PreferredDate: string(p.PreferredDate),
		TimeOfDay:     string(p.TimeOfDay),
		DaysAhead:     int(p.DaysAhead),
		CallID:        callID,
	}
}

type bookingParams struct {
	StartTime    flexString `json:"startTime"`
	CustomerName flexString `json:"customerName"`
	PhoneNumber  flexString `json:"phoneNumber"`
	Email        flexString `json:"email"`
	Address      flexString `json:"address"`
	Issue        flexString `json:"issue"`
}

func (p bookingParams) request(callID string) booking.BookingRequest {
	return booking.BookingRequest{
		StartTime:    string(p.StartTime),
		CustomerName: string(p.CustomerName),
		PhoneNumber:  string(p.PhoneNumber),
		Email:        string(p.Email),
		Address:      string(p.Address),
		Issue:        string(p.Issue),
		CallID:       callID,
	}
}

// decodeParams unmarshals raw into v. Some platforms send the parameter
// object as a JSON-encoded string, which is unwrapped first.
func decodeParams(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			return nil
		}
		raw = json.RawMessage(s)
	}
	return json.Unmarshal(raw, v)
}

// flexInt accepts 7, 7.0, "7" and "".
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("expected a number, got %s", b)
	}
	*n = flexInt(f)
	return nil
}

// flexString accepts strings and bare numbers, e.g. a phone number the
// assistant emitted without quotes.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		return nil
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	default:
		if _, err := strconv.ParseFloat(string(b), 64); err != nil {
			return fmt.Errorf("expected a string, got %s", b)
		}
		*s = flexString(b)
		return nil
	}
}
