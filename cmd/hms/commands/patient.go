package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cityhospital/hms/pkg/hospital"
	"github.com/cityhospital/hms/pkg/stores"
)

func newPatientCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "patient",
		Aliases: []string{"patients"},
		Short:   "Register, look up and discharge patients",
	}

	cmd.AddCommand(newPatientAddCommand())
	cmd.AddCommand(newPatientShowCommand())
	cmd.AddCommand(newPatientListCommand())
	cmd.AddCommand(newPatientDischargeCommand())

	return cmd
}

func newPatientAddCommand() *cobra.Command {
	var form hospital.PatientForm

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new patient",
		Example: `  hms patient add --name "Asha Rao" --dob 1990-01-01 --gender Female \
    --problem Fever --mobile 9998887777`,
		RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
			patient, err := s.svc.RegisterPatient(s.ctx, form)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), patient)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered patient %d: %s\n", patient.ID, patient.Name)
			return nil
		}),
	}

	cmd.Flags().StringVar(&form.Name, "name", "", "patient name")
	cmd.Flags().StringVar(&form.DOB, "dob", "", "date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVar(&form.Gender, "gender", "", "Male, Female or Other")
	cmd.Flags().StringVar(&form.Problem, "problem", "", "presenting problem")
	cmd.Flags().StringVar(&form.MobileNo, "mobile", "", "mobile number")

	return cmd
}

func newPatientShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <patient-id>",
		Short: "Show a patient and their appointments",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
			record, err := s.svc.ViewPatient(s.ctx, args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), record)
			}

			p := record.Patient
			out := cmd.OutOrStdout()
			if err := printTable(out, []string{"FIELD", "VALUE"}, [][]string{
				{"Patient ID", strconv.FormatInt(p.ID, 10)},
				{"Name", p.Name},
				{"Date of Birth", p.DOB},
				{"Gender", p.Gender},
				{"Problem", p.Problem},
				{"Mobile", p.MobileNo},
			}); err != nil {
				return err
			}

			if len(record.Appointments) == 0 {
				fmt.Fprintln(out, "\nNo appointments booked.")
				return nil
			}
			fmt.Fprintln(out)
			return printAppointments(cmd, record.Appointments)
		}),
	}
}

func newPatientListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered patients",
		Args:  cobra.NoArgs,
		RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
			patients, err := s.svc.ListPatients(s.ctx)
			if err != nil {
				return err
			}
			return printPatients(cmd, patients)
		}),
	}
}

func newPatientDischargeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "discharge <patient-id>",
		Short: "Discharge a patient and cancel their appointments",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
			patient, err := s.svc.DischargePatient(s.ctx, args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), patient)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Discharged patient %d: %s\n", patient.ID, patient.Name)
			return nil
		}),
	}
}

func printPatients(cmd *cobra.Command, patients []*stores.Patient) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), patients)
	}

	rows := make([][]string, 0, len(patients))
	for _, p := range patients {
		rows = append(rows, []string{strconv.FormatInt(p.ID, 10), p.Name, p.DOB, p.Gender, p.Problem, p.MobileNo})
	}
	return printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "DOB", "GENDER", "PROBLEM", "MOBILE"}, rows)
}
