package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cityhospital/hms/pkg/auth"
)

func newPasswdCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd [password]",
		Short: "Print a bcrypt hash for auth.users",
		Long: `Hash a password for the credential store. Paste the output into the
password_hash field of an auth.users entry.

Without an argument the password is read from the first line of stdin.`,
		Example: `  echo 'correct-horse' | hms passwd`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var plain string
			if len(args) == 1 {
				plain = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given on stdin")
				}
				plain = strings.TrimRight(line, "\r\n")
			}

			hash, err := auth.HashPassword(plain)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
