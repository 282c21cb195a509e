package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cityhospital/hms/pkg/hospital"
	"github.com/cityhospital/hms/pkg/stores"
)

func newAppointmentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "appointment",
		Aliases: []string{"appt", "appointments"},
		Short:   "Book, list and cancel appointments",
	}

	cmd.AddCommand(newAppointmentBookCommand())
	cmd.AddCommand(newAppointmentListCommand())
	cmd.AddCommand(newAppointmentCancelCommand())

	return cmd
}

func newAppointmentBookCommand() *cobra.Command {
	var form hospital.AppointmentForm

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book an appointment for a registered patient",
		Example: `  hms appointment book --patient-id 1 --date 2024-05-01 --time 10:30 --details "Follow-up"`,
		RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
			appt, err := s.svc.BookAppointment(s.ctx, form)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), appt)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Booked appointment %d for patient %d on %s at %s\n",
				appt.ID, appt.PatientID, appt.Date, appt.Time)
			return nil
		}),
	}

	cmd.Flags().StringVar(&form.PatientID, "patient-id", "", "patient ID")
	cmd.Flags().StringVar(&form.Date, "date", "", "date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&form.Time, "time", "", "time (HH:MM)")
	cmd.Flags().StringVar(&form.Details, "details", "", "reason for the visit")

	return cmd
}

func newAppointmentListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List booked appointments",
		Args:  cobra.NoArgs,
		RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
			appts, err := s.svc.ListAppointments(s.ctx)
			if err != nil {
				return err
			}
			return printAppointments(cmd, appts)
		}),
	}
}

func newAppointmentCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <appointment-id>",
		Short: "Cancel an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
			if err := s.svc.CancelAppointment(s.ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Cancelled appointment %s\n", args[0])
			return nil
		}),
	}
}

func printAppointments(cmd *cobra.Command, appts []*stores.Appointment) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), appts)
	}

	rows := make([][]string, 0, len(appts))
	for _, a := range appts {
		rows = append(rows, []string{
			strconv.FormatInt(a.ID, 10), strconv.FormatInt(a.PatientID, 10), a.Date, a.Time, a.Details,
		})
	}
	return printTable(cmd.OutOrStdout(), []string{"ID", "PATIENT", "DATE", "TIME", "DETAILS"}, rows)
}
