package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/teemow/slotkeeper/internal/store"
)

// ProductID identifies the feed producer.
const ProductID = "-//slotkeeper//Appointments//EN"

// ContentType is the media type of the feed.
const ContentType = "text/calendar; charset=utf-8"

// WriteICS writes appts as a VCALENDAR with one confirmed VEVENT each.
func WriteICS(w io.Writer, appts []store.Appointment, businessName string) error {
	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)
	if businessName != "" {
		cal.SetName(businessName + " appointments")
	}

	for _, a := range appts {
		ev := cal.AddEvent(uid(a))
		stamp := a.CreatedAt
		if stamp.IsZero() {
			stamp = time.Now()
		}
		ev.SetDtStampTime(stamp.UTC())
		ev.SetCreatedTime(stamp.UTC())
		ev.SetStartAt(a.Start.UTC())
		ev.SetEndAt(a.End.UTC())
		ev.SetStatus(ical.ObjectStatusConfirmed)
		ev.SetSummary(summary(a))
		if a.Address != "" {
			ev.SetLocation(a.Address)
		}
		ev.SetDescription(description(a))
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("failed to write ics feed: %w", err)
	}
	return nil
}

func uid(a store.Appointment) string {
	if a.EventID != "" {
		return a.EventID + "@slotkeeper"
	}
	return fmt.Sprintf("appointment-%d@slotkeeper", a.ID)
}

func summary(a store.Appointment) string {
	if a.Issue == "" {
		return a.CustomerName
	}
	return a.CustomerName + ": " + a.Issue
}

func description(a store.Appointment) string {
	lines := []string{"Customer: " + a.CustomerName}
	if a.Phone != "" {
		lines = append(lines, "Phone: "+a.Phone)
	}
	if a.Email != "" {
		lines = append(lines, "Email: "+a.Email)
	}
	if a.Issue != "" {
		lines = append(lines, "Issue: "+a.Issue)
	}
	if a.CallID != "" {
		lines = append(lines, "Call: "+a.CallID)
	}
	return strings.Join(lines, "\n")
}
