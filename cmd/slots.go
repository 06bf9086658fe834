package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/slotkeeper/internal/booking"
)

func newSlotsCmd() *cobra.Command {
	var (
		req        booking.AvailabilityRequest
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Show the slots a caller would be offered",
		Long: `Query the active calendar account and print open appointment slots.

Examples:
  slotkeeper slots
  slotkeeper slots --date tomorrow --time-of-day morning
  slotkeeper slots --date "next friday" --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				res := a.booking.AvailableSlots(cmd.Context(), req)
				if jsonOutput {
					return writeJSONOutput(cmd.OutOrStdout(), res)
				}
				return printSlots(cmd.OutOrStdout(), res)
			})
		},
	}

	cmd.Flags().StringVar(&req.PreferredDate, "date", "", `Preferred date, e.g. "tomorrow", "next friday" or 2024-01-15`)
	cmd.Flags().StringVar(&req.TimeOfDay, "time-of-day", "", "morning, afternoon, evening or any")
	cmd.Flags().IntVar(&req.DaysAhead, "days", 0, fmt.Sprintf("Days to search (default from config, max %d)", booking.MaxDaysAhead))
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")

	return cmd
}

func printSlots(w io.Writer, res booking.AvailabilityResult) error {
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	fmt.Fprintln(w, res.Message)
	for _, s := range res.Slots {
		fmt.Fprintf(w, "  %s  (%s)\n", s.Display, s.Start.Format(time.RFC3339))
	}
	return nil
}

func writeJSONOutput(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
