package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/slotkeeper/internal/logging"
)

// rootCmd represents the base command for the slotkeeper application
var rootCmd = &cobra.Command{
	Use:   "slotkeeper",
	Short: "Books appointments into Google Calendar for voice-AI callers",
	Long: `slotkeeper offers open appointment slots computed from business hours and
the connected Google Calendar, and books the slot a caller picks.

It can run as:
  - An HTTP service for voice-AI function calls (serve)
  - An MCP (Model Context Protocol) server for AI assistants (serve --transport stdio)
  - A CLI to manage the connected calendar account and inspect bookings`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.NewLogger(os.Stderr, logFormat, debugMode)
		slog.SetDefault(logger)
	},
}

// version will be set by main
var version = "dev"

var (
	configPath string
	logFormat  string
	debugMode  bool

	logger = slog.Default()
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "slotkeeper version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file. Can also use SLOTKEEPER_CONFIG env var.")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAccountsCmd())
	rootCmd.AddCommand(newSlotsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
