package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/slotkeeper/internal/booking"
)

type fakeBooker struct {
	mu sync.Mutex

	availability []booking.AvailabilityRequest
	bookings     []booking.BookingRequest
	deadlines    []time.Duration

	slotResult booking.AvailabilityResult
	bookResult booking.BookingResult
}

func (f *fakeBooker) AvailableSlots(ctx context.Context, req booking.AvailabilityRequest) booking.AvailabilityResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availability = append(f.availability, req)
	if d, ok := ctx.Deadline(); ok {
		f.deadlines = append(f.deadlines, time.Until(d))
	}
	return f.slotResult
}

func (f *fakeBooker) Book(_ context.Context, req booking.BookingRequest) booking.BookingResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings = append(f.bookings, req)
	return f.bookResult
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/voice", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Result map[string]any `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Result
}

func functionCall(name, params string) string {
	return `{"message":{"type":"function-call","call":{"id":"call-42"},` +
		`"functionCall":{"name":"` + name + `","parameters":` + params + `}}}`
}

func TestHandler_GetAvailableSlots(t *testing.T) {
	tests := []struct {
		name   string
		params string
		want   booking.AvailabilityRequest
	}{
		{
			name:   "typed parameters",
			params: `{"preferredDate":"tomorrow","timeOfDay":"morning","daysAhead":3}`,
			want:   booking.AvailabilityRequest{PreferredDate: "tomorrow", TimeOfDay: "morning", DaysAhead: 3, CallID: "call-42"},
		},
		{
			name:   "number as string",
			params: `{"daysAhead":"5"}`,
			want:   booking.AvailabilityRequest{DaysAhead: 5, CallID: "call-42"},
		},
		{
			name:   "empty string number",
			params: `{"daysAhead":""}`,
			want:   booking.AvailabilityRequest{CallID: "call-42"},
		},
		{
			name:   "parameters encoded as a string",
			params: `"{\"preferredDate\":\"friday\"}"`,
			want:   booking.AvailabilityRequest{PreferredDate: "friday", CallID: "call-42"},
		},
		{
			name:   "no parameters",
			params: `null`,
			want:   booking.AvailabilityRequest{CallID: "call-42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBooker{slotResult: booking.AvailabilityResult{Success: true, Slots: []booking.SlotOption{}, Message: "I have one opening available."}}
			h := NewHandler(fb)

			rec := post(t, h, functionCall(FunctionGetAvailableSlots, tt.params))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			result := decodeResult(t, rec)
			assert.Equal(t, true, result["success"])
			assert.Equal(t, "I have one opening available.", result["message"])
			require.Len(t, fb.availability, 1)
			assert.Equal(t, tt.want, fb.availability[0])
		})
	}
}

func TestHandler_BookAppointment(t *testing.T) {
	fb := &fakeBooker{bookResult: booking.BookingResult{
		Success:     false,
		Message:     "That time was just taken.",
		Error:       booking.CodeSlotUnavailable,
		ShouldRetry: true,
	}}
	h := NewHandler(fb)

	rec := post(t, h, functionCall(FunctionBookAppointment,
		`{"startTime":"2024-01-15T14:00:00Z","customerName":"Jane Doe","phoneNumber":5551234567,`+
			`"address":"1 Main St","issue":"Leak"}`))

	require.Equal(t, http.StatusOK, rec.Code, "booking failures are still answered with 200")
	result := decodeResult(t, rec)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, true, result["shouldRetry"])

	require.Len(t, fb.bookings, 1)
	got := fb.bookings[0]
	assert.Equal(t, "5551234567", got.PhoneNumber)
	assert.Equal(t, "Jane Doe", got.CustomerName)
	assert.Equal(t, "call-42", got.CallID)
	assert.Empty(t, got.Email)
}

func TestHandler_UnknownFunction(t *testing.T) {
	fb := &fakeBooker{}
	rec := post(t, NewHandler(fb), functionCall("transferCall", `{}`))

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, "unknown_function", result["error"])
	assert.Empty(t, fb.availability)
	assert.Empty(t, fb.bookings)
}

func TestHandler_InvalidParameters(t *testing.T) {
	tests := []struct {
		name     string
		function string
		params   string
		wantKeys []string
	}{
		{
			name:     "slots keep the result shape",
			function: FunctionGetAvailableSlots,
			params:   `{"daysAhead":"a week"}`,
			wantKeys: []string{"success", "slots", "totalAvailable", "message", "error"},
		},
		{
			name:     "booking keeps the result shape",
			function: FunctionBookAppointment,
			params:   `{"startTime":["2024-01-15T14:00:00Z"]}`,
			wantKeys: []string{"success", "message", "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBooker{}
			rec := post(t, NewHandler(fb), functionCall(tt.function, tt.params))

			require.Equal(t, http.StatusOK, rec.Code)
			result := decodeResult(t, rec)
			for _, key := range tt.wantKeys {
				assert.Contains(t, result, key)
			}
			assert.Equal(t, false, result["success"])
			assert.Equal(t, booking.CodeInvalidRequest, result["error"])
			assert.Equal(t, msgRepeat, result["message"])
			if slots, ok := result["slots"]; ok {
				assert.Equal(t, []any{}, slots)
				assert.Equal(t, float64(0), result["totalAvailable"])
			}
			assert.Empty(t, fb.availability)
			assert.Empty(t, fb.bookings)
		})
	}
}

func TestHandler_NonFunctionMessages(t *testing.T) {
	bodies := []string{
		`{"message":{"type":"status-update","call":{"id":"call-42"}}}`,
		`{"message":{"type":"end-of-call-report"}}`,
		`{"message":{"type":"function-call"}}`,
		`{}`,
	}
	for _, body := range bodies {
		fb := &fakeBooker{}
		rec := post(t, NewHandler(fb), body)
		assert.Equal(t, http.StatusOK, rec.Code, body)
		assert.JSONEq(t, `{}`, rec.Body.String(), body)
	}
}

func TestHandler_MalformedJSON(t *testing.T) {
	rec := post(t, NewHandler(&fakeBooker{}), `{"message":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON")
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/webhook/voice", nil)
	rec := httptest.NewRecorder()
	NewHandler(&fakeBooker{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestHandler_FunctionBudget(t *testing.T) {
	fb := &fakeBooker{}
	h := NewHandler(fb, WithTimeout(3*time.Second))

	post(t, h, functionCall(FunctionGetAvailableSlots, `{}`))

	require.Len(t, fb.deadlines, 1)
	assert.LessOrEqual(t, fb.deadlines[0], 3*time.Second)
	assert.Greater(t, fb.deadlines[0], time.Second)
}

func TestHandler_GeneratesCallID(t *testing.T) {
	fb := &fakeBooker{}
	post(t, NewHandler(fb), `{"message":{"type":"function-call","functionCall":{"name":"getAvailableSlots"}}}`)

	require.Len(t, fb.availability, 1)
	assert.Len(t, fb.availability[0].CallID, 36)
}

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: `7`, want: 7},
		{in: `7.0`, want: 7},
		{in: `"14"`, want: 14},
		{in: `" 3 "`, want: 3},
		{in: `""`, want: 0},
		{in: `null`, want: 0},
		{in: `"soon"`, wantErr: true},
		{in: `true`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var n flexInt
			err := json.Unmarshal([]byte(tt.in), &n)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, int(n))
		})
	}
}
