package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath  string
	dbPath      string
	verbose     bool
	jsonOutput  bool
	username    string
	password    string
	dumpMetrics bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return userError(err)
	}
	return nil
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hms",
		Short: "hms - hospital front-desk records",
		Long: `hms keeps the front-desk records of a hospital in a local SQLite file.

Features:
  - Patient registration, lookup and discharge
  - Staff registry
  - Appointment booking and cancellation
  - Billing receipts with configurable tax lines
  - Raw SQL access for reports`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (overrides database.path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "front-desk username (or HMS_USERNAME)")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "front-desk password (or HMS_PASSWORD)")
	rootCmd.PersistentFlags().BoolVar(&dumpMetrics, "metrics", false, "print collected metrics to stderr on exit")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newResetCommand())
	rootCmd.AddCommand(newPatientCommand())
	rootCmd.AddCommand(newStaffCommand())
	rootCmd.AddCommand(newAppointmentCommand())
	rootCmd.AddCommand(newBillCommand())
	rootCmd.AddCommand(newContactCommand())
	rootCmd.AddCommand(newQueryCommand())
	rootCmd.AddCommand(newExecCommand())
	rootCmd.AddCommand(newPasswdCommand())

	return rootCmd
}
