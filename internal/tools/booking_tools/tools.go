package booking_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/slotkeeper/internal/booking"
	"github.com/teemow/slotkeeper/internal/instrumentation"
	"github.com/teemow/slotkeeper/internal/tools/common"
)

// Tool names.
const (
	ToolGetAvailableSlots = "get_available_slots"
	ToolBookAppointment   = "book_appointment"
)

// Booker is the booking surface the tools call into.
type Booker interface {
	AvailableSlots(ctx context.Context, req booking.AvailabilityRequest) booking.AvailabilityResult
	Book(ctx context.Context, req booking.BookingRequest) booking.BookingResult
}

// RegisterBookingTools registers the scheduling tools with the MCP server.
func RegisterBookingTools(s *mcpserver.MCPServer, b Booker, metrics *instrumentation.Metrics) error {
	if s == nil || b == nil {
		return fmt.Errorf("mcp server and booker are required")
	}

	slotsTool := mcp.NewTool(ToolGetAvailableSlots,
		mcp.WithDescription("List open appointment slots. Returns up to five options with a caller-friendly message."),
		mcp.WithString("preferredDate",
			mcp.Description("Preferred day in natural language, e.g. 'tomorrow', 'next tuesday', 'March 5' or '2024-03-05'"),
		),
		mcp.WithString("timeOfDay",
			mcp.Description("Preferred part of the day"),
			mcp.Enum("morning", "afternoon", "evening", "any"),
		),
		mcp.WithNumber("daysAhead",
			mcp.Description("How many days to search, including today (default: 7, max: 30)"),
		),
	)
	s.AddTool(slotsTool, common.InstrumentedToolHandler(ToolGetAvailableSlots, metrics, handleGetAvailableSlots(b)))

	bookTool := mcp.NewTool(ToolBookAppointment,
		mcp.WithDescription("Book an appointment at a start time previously returned by get_available_slots."),
		mcp.WithString("startTime",
			mcp.Required(),
			mcp.Description("Slot start time in RFC3339 format, exactly as returned by get_available_slots"),
		),
		mcp.WithString("customerName",
			mcp.Required(),
			mcp.Description("Customer's full name"),
		),
		mcp.WithString("phoneNumber",
			mcp.Required(),
			mcp.Description("Callback phone number"),
		),
		mcp.WithString("email",
			mcp.Description("Customer email; when set the customer receives a calendar invitation"),
		),
		mcp.WithString("address",
			mcp.Required(),
			mcp.Description("Service address"),
		),
		mcp.WithString("issue",
			mcp.Required(),
			mcp.Description("Short description of the problem"),
		),
	)
	s.AddTool(bookTool, common.InstrumentedToolHandler(ToolBookAppointment, metrics, handleBookAppointment(b)))

	return nil
}

func handleGetAvailableSlots(b Booker) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		days, err := common.IntArg(args, "daysAhead")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res := b.AvailableSlots(ctx, booking.AvailabilityRequest{
			PreferredDate: common.StringArg(args, "preferredDate"),
			TimeOfDay:     common.StringArg(args, "timeOfDay"),
			DaysAhead:     days,
		})
		return result(res, res.Success), nil
	}
}

func handleBookAppointment(b Booker) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		res := b.Book(ctx, booking.BookingRequest{
			StartTime:    common.StringArg(args, "startTime"),
			CustomerName: common.StringArg(args, "customerName"),
			PhoneNumber:  common.StringArg(args, "phoneNumber"),
			Email:        common.StringArg(args, "email"),
			Address:      common.StringArg(args, "address"),
			Issue:        common.StringArg(args, "issue"),
		})
		return result(res, res.Success), nil
	}
}

// result renders a booking outcome. Unsuccessful outcomes are still JSON so
// the model can read the message and shouldRetry flag.
func result(v any, success bool) *mcp.CallToolResult {
	r := common.JSONResult(v)
	if !success {
		r.IsError = true
	}
	return r
}
