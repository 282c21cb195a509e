package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cityhospital/hms/pkg/hospital"
)

func newStaffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage the staff registry",
	}

	cmd.AddCommand(newStaffAddCommand())
	cmd.AddCommand(newStaffListCommand())

	return cmd
}

func newStaffAddCommand() *cobra.Command {
	var form hospital.StaffForm

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a staff member",
		Example: `  hms staff add --name "Dr. Mehta" --age 45 --gender Male \
    --specialization Cardiology --languages "English, Hindi" \
    --mobile 9876543210 --email mehta@cityhospital.com --schedule "Mon-Fri 9-5"`,
		RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
			member, err := s.svc.RegisterStaff(s.ctx, form)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), member)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered staff member %d: %s\n", member.ID, member.Name)
			return nil
		}),
	}

	cmd.Flags().StringVar(&form.Name, "name", "", "staff member name")
	cmd.Flags().StringVar(&form.Age, "age", "", "age in years")
	cmd.Flags().StringVar(&form.Gender, "gender", "", "Male, Female or Other")
	cmd.Flags().StringVar(&form.Specialization, "specialization", "", "specialization")
	cmd.Flags().StringVar(&form.LanguagesSpoken, "languages", "", "languages spoken")
	cmd.Flags().StringVar(&form.MobileNo, "mobile", "", "mobile number")
	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	cmd.Flags().StringVar(&form.Schedule, "schedule", "", "working schedule")

	return cmd
}

func newStaffListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staff members",
		Args:  cobra.NoArgs,
		RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
			staff, err := s.svc.ListStaff(s.ctx)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), staff)
			}

			rows := make([][]string, 0, len(staff))
			for _, m := range staff {
				rows = append(rows, []string{
					strconv.FormatInt(m.ID, 10), m.Name, strconv.Itoa(m.Age), m.Gender,
					m.Specialization, m.LanguagesSpoken, m.MobileNo, m.Email, m.Schedule,
				})
			}
			return printTable(cmd.OutOrStdout(),
				[]string{"ID", "NAME", "AGE", "GENDER", "SPECIALIZATION", "LANGUAGES", "MOBILE", "EMAIL", "SCHEDULE"}, rows)
		}),
	}
}
