package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/slotkeeper/internal/export"
	"github.com/teemow/slotkeeper/internal/store"
)

func newExportCmd() *cobra.Command {
	var (
		outputFile string
		since      time.Duration
		account    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export confirmed appointments as iCalendar",
		Long: `Write recorded appointments as an iCalendar (.ics) feed that calendar
apps can import or subscribe to.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				filter := store.AppointmentFilter{AccountEmail: account}
				if since > 0 {
					filter.From = time.Now().Add(-since)
				}
				appts, err := a.store.ListAppointments(cmd.Context(), filter)
				if err != nil {
					return err
				}

				if outputFile == "" {
					return export.WriteICS(cmd.OutOrStdout(), appts, a.cfg.Business.Name)
				}
				if err := writeICSFile(outputFile, appts, a.cfg.Business.Name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d appointments to: %s\n", len(appts), outputFile)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().DurationVar(&since, "since", 30*24*time.Hour, "Include appointments starting at most this long ago. 0 exports everything.")
	cmd.Flags().StringVar(&account, "account", "", "Only export appointments of this calendar account email")

	return cmd
}

func writeICSFile(path string, appts []store.Appointment, businessName string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { err = errors.Join(err, f.Close()) }()

	return export.WriteICS(f, appts, businessName)
}
