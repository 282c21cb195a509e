package commands

import (
	"github.com/spf13/cobra"

	"github.com/cityhospital/hms/pkg/hospital"
)

func newBillCommand() *cobra.Command {
	var form hospital.BillingForm

	cmd := &cobra.Command{
		Use:   "bill",
		Short: "Issue a billing receipt",
		Long: `Issue a receipt for services rendered to a registered patient.

The receipt adds one line per tax. By default these are CST and GST at the
configured rates; billing.tariff_script replaces them with the lines a
Starlark script computes.`,
		Example: `  hms bill --patient-id 1 --services Consultation --amount 1000`,
		RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
			receipt, err := s.svc.BillPatient(s.ctx, form)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), receipt)
			}
			return receipt.Format(cmd.OutOrStdout())
		}),
	}

	cmd.Flags().StringVar(&form.PatientID, "patient-id", "", "patient ID")
	cmd.Flags().StringVar(&form.Services, "services", "", "services rendered")
	cmd.Flags().StringVar(&form.Amount, "amount", "", "amount due before tax")

	return cmd
}
