package commands

import (
	"github.com/spf13/cobra"

	"github.com/cityhospital/hms/pkg/hospital"
)

func newContactCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "contact",
		Short: "Print the hospital's contact details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}

			contact := hospital.ContactFromConfig(cfg.Hospital)
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), contact)
			}
			return contact.Format(cmd.OutOrStdout())
		},
	}
}
