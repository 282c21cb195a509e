package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cityhospital/hms/pkg/config"
)

func newInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file and an empty database",
		Long: `Write a default configuration file and create the record store with
its tables.

An existing config file is kept unless --force is given. The database is
migrated in place and database.reset_on_start is ignored, so running init
twice never loses records.`,
		Example: `  # Initialize in the current directory
  hms init

  # Use a custom config and database location
  hms init --config /etc/hms/hms.yaml --db /var/lib/hms/hospital.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = config.DefaultFileName
			}

			log.Info().
				Str("config", path).
				Bool("force", force).
				Msg("Initializing hms")

			cfg := config.Default()
			if _, err := os.Stat(path); err == nil && !force {
				loaded, err := config.Load(path)
				if err != nil {
					return err
				}
				cfg = loaded
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Using existing config file: %s\n", path)
			} else {
				if dbPath != "" {
					cfg.Database.Path = dbPath
				}
				if err := config.Save(path, cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Created config file: %s\n", path)
			}

			if dbPath != "" {
				cfg.Database.Path = dbPath
			}
			if err := cfg.Validate(cmd.Context()); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			store, err := openStore(cmd.Context(), cfg.Database, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Initialized database: %s\n", cfg.Database.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}
