package resources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/slotkeeper/internal/export"
	"github.com/teemow/slotkeeper/internal/slots"
	"github.com/teemow/slotkeeper/internal/store"
)

const (
	URIBusinessHours        = "slotkeeper://business/hours"
	URICalendarAccount      = "slotkeeper://calendar/account"
	URIUpcomingAppointments = "slotkeeper://appointments/upcoming"

	upcomingWindow = 30 * 24 * time.Hour
)

// Store is the read side of the store the resources expose.
type Store interface {
	GetActiveAccount(ctx context.Context) (*store.Account, error)
	ListAppointments(ctx context.Context, f store.AppointmentFilter) ([]store.Appointment, error)
}

// Business is what the resources describe.
type Business struct {
	Name  string
	Rules slots.Rules
	Store Store
	// Now defaults to time.Now.
	Now func() time.Time
}

// RegisterBusinessResources registers the business resources.
func RegisterBusinessResources(s *mcpserver.MCPServer, b Business) error {
	if s == nil || b.Store == nil {
		return fmt.Errorf("mcp server and store are required")
	}
	if b.Now == nil {
		b.Now = time.Now
	}

	hoursResource := mcp.NewResource(
		URIBusinessHours,
		"Business Hours",
		mcp.WithResourceDescription("When appointments can be booked: timezone, opening hours, business days and slot length"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(hoursResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonContents(request.Params.URI, hoursData(b))
	})

	accountResource := mcp.NewResource(
		URICalendarAccount,
		"Calendar Account",
		mcp.WithResourceDescription("The Google Calendar account bookings are written to"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(accountResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleCalendarAccount(ctx, request, b)
	})

	upcomingResource := mcp.NewResource(
		URIUpcomingAppointments,
		"Upcoming Appointments",
		mcp.WithResourceDescription("Appointments booked for the next 30 days as an iCalendar feed"),
		mcp.WithMIMEType(export.ContentType),
	)
	s.AddResource(upcomingResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleUpcomingAppointments(ctx, request, b)
	})

	return nil
}

func hoursData(b Business) map[string]interface{} {
	days := make([]string, 0, len(b.Rules.Days))
	for _, d := range b.Rules.Days {
		days = append(days, d.String())
	}
	lead := b.Rules.LeadTime
	if lead == 0 {
		lead = slots.DefaultLeadTime
	}
	tz := "UTC"
	if b.Rules.Location != nil {
		tz = b.Rules.Location.String()
	}
	return map[string]interface{}{
		"business":            b.Name,
		"timezone":            tz,
		"open":                b.Rules.Open.String(),
		"close":               b.Rules.Close.String(),
		"days":                days,
		"slotDurationMinutes": int(b.Rules.Duration / time.Minute),
		"leadTimeMinutes":     int(lead / time.Minute),
	}
}

func handleCalendarAccount(ctx context.Context, request mcp.ReadResourceRequest, b Business) ([]mcp.ResourceContents, error) {
	account, err := b.Store.GetActiveAccount(ctx)
	if errors.Is(err, store.ErrNoActiveAccount) {
		return jsonContents(request.Params.URI, map[string]interface{}{
			"connected":   false,
			"description": "No calendar account is connected",
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active account: %w", err)
	}

	return jsonContents(request.Params.URI, map[string]interface{}{
		"connected":  true,
		"email":      account.Email,
		"calendarId": account.CalendarID,
		// Tokens are never exposed.
		"canRefresh": account.RefreshToken != "",
	})
}

func handleUpcomingAppointments(ctx context.Context, request mcp.ReadResourceRequest, b Business) ([]mcp.ResourceContents, error) {
	now := b.Now()
	appts, err := b.Store.ListAppointments(ctx, store.AppointmentFilter{From: now, To: now.Add(upcomingWindow)})
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	var buf bytes.Buffer
	if err := export.WriteICS(&buf, appts, b.Name); err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: export.ContentType,
			Text:     buf.String(),
		},
	}, nil
}

func jsonContents(uri string, data map[string]interface{}) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
