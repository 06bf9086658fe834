package booking

import (
	"fmt"
	"strings"
)

// Caller-facing messages. Every failure offers a callback.
const (
	msgCallback       = "I'm sorry, I wasn't able to book that right now. Someone from our team will call you back to schedule your appointment."
	msgNoAccount      = "Online scheduling isn't available at the moment. Someone from our team will call you back to find a time."
	msgCalendarDown   = "I'm having trouble reaching our calendar right now. Someone from our team will call you back to find a time."
	msgSlotTaken      = "That time was just taken. Let me find another available time for you."
	msgSlotInPast     = "That time has already passed. Let me find another available time for you."
	msgSlotNotOffered = "That isn't one of our open appointment times. Let me find an available time for you."
	msgInvalidRequest = "I'm sorry, I couldn't understand that request. Someone from our team will call you back to help."
)

func incompleteMessage(missing []string) string {
	return fmt.Sprintf("Before I can book, I still need your %s.", joinFields(missing))
}

func noSlotsMessage(days int) string {
	return fmt.Sprintf("I don't see any openings in the next %d days. Would you like someone from our team to call you back to find a time?", days)
}

func slotsMessage(shown, total int) string {
	if total == 1 {
		return "I have one opening available."
	}
	if shown < total {
		return fmt.Sprintf("I have %d openings available. Here are the first %d.", total, shown)
	}
	return fmt.Sprintf("I have %d openings available.", total)
}

func confirmedMessage(display string) string {
	return fmt.Sprintf("You're all set. Your appointment is confirmed for %s.", display)
}

func joinFields(fields []string) string {
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	case 2:
		return fields[0] + " and " + fields[1]
	default:
		return strings.Join(fields[:len(fields)-1], ", ") + " and " + fields[len(fields)-1]
	}
}
