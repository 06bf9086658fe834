package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/slotkeeper/internal/store"
)

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage connected calendar accounts",
		Long: `List, activate and disconnect the Google Calendar accounts slotkeeper books into.

Accounts are connected through the OAuth flow of a running server:
open <server>/oauth/google/start in a browser. The first connected account
becomes active. Exactly one account is used for bookings.`,
	}

	cmd.AddCommand(newAccountsListCmd())
	cmd.AddCommand(newAccountsActivateCmd())
	cmd.AddCommand(newAccountsDeactivateCmd())
	cmd.AddCommand(newAccountsDisconnectCmd())
	return cmd
}

func newAccountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List connected accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				accounts, err := a.store.ListAccounts(cmd.Context())
				if err != nil {
					return err
				}
				return printAccounts(cmd.OutOrStdout(), accounts, time.Now())
			})
		},
	}
}

func newAccountsActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate ID",
		Short: "Make an account the one bookings use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app) error {
				if err := a.connector.Activate(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Account %d is now active\n", id)
				return nil
			})
		},
	}
}

func newAccountsDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate ID",
		Short: "Stop booking into an account without disconnecting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app) error {
				if err := a.store.DeactivateAccount(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Account %d deactivated. Bookings are paused until an account is activated.\n", id)
				return nil
			})
		},
	}
}

func newAccountsDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect ID",
		Short: "Revoke and delete an account",
		Long: `Revoke the account's Google token and delete it. The account is deleted
even when the revoke call fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				if err := a.connector.Disconnect(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Account %d disconnected\n", id)
				return nil
			})
		},
	}
}

func parseAccountID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid account id %q", s)
	}
	return id, nil
}

func printAccounts(w io.Writer, accounts []store.Account, now time.Time) error {
	if len(accounts) == 0 {
		_, err := fmt.Fprintln(w, "No calendar accounts connected.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tCALENDAR\tACTIVE\tTOKEN")
	for _, acc := range accounts {
		active := ""
		if acc.Active {
			active = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", acc.ID, acc.Email, acc.CalendarID, active, tokenState(acc, now))
	}
	return tw.Flush()
}

// tokenState summarises the access token without printing it.
func tokenState(acc store.Account, now time.Time) string {
	switch {
	case acc.RefreshToken == "":
		return "no refresh token"
	case acc.TokenExpiry.IsZero():
		return "valid"
	case !acc.TokenExpiry.After(now):
		return "expired"
	default:
		return "expires in " + acc.TokenExpiry.Sub(now).Round(time.Minute).String()
	}
}
