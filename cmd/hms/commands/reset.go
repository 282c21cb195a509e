package commands

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cityhospital/hms/pkg/policy"
)

func newResetCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every patient, staff member and appointment",
		Long: `Drop and recreate all tables. Every record is lost and IDs start again at 1.

This cannot be undone; --yes is required.`,
		Example: `  hms reset --yes`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			return nil
		},
		RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
			if err := s.authz.Authorize(s.ctx, policy.OpReset, nil); err != nil {
				return err
			}

			log.Warn().Str("path", s.store.Path()).Msg("Resetting database")
			if err := s.store.Reset(s.ctx); err != nil {
				return fmt.Errorf("failed to reset database: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "✓ Database reset")
			return nil
		}),
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")

	return cmd
}
