// Package voice implements the function-call webhook used by voice AI
// platforms.
//
// The platform posts a message envelope:
//
//	{"message": {"type": "function-call",
//	             "call": {"id": "..."},
//	             "functionCall": {"name": "bookAppointment", "parameters": {...}}}}
//
// and expects {"result": <object>} back. Two functions are exposed:
// getAvailableSlots and bookAppointment. Every known message is answered
// with HTTP 200 and a structured result so the assistant can keep talking;
// only malformed JSON gets a 400.
package voice
