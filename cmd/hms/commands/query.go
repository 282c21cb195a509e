package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cityhospital/hms/pkg/policy"
	"github.com/cityhospital/hms/pkg/stores"
)

func newQueryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "query <statement> [args...]",
		Short: "Run a read-only SQL statement",
		Long: `Run a SELECT against the record store and print every row.

Values appear in the statement's column order. Extra arguments bind to ?
placeholders in order.`,
		Example: `  hms query "SELECT * FROM patients"
  hms query "SELECT * FROM appointments WHERE patient_id = ?" 1`,
		Args: cobra.MinimumNArgs(1),
		RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
			if err := s.authz.Authorize(s.ctx, policy.OpQuery, map[string]string{"statement": args[0]}); err != nil {
				return err
			}

			rows, err := s.store.Query(s.ctx, args[0], bindArgs(args[1:])...)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), rows)
			}

			if len(rows) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "(no rows)")
				return nil
			}
			return printTable(cmd.OutOrStdout(), nil, rowCells(rows))
		}),
	}
}

func newExecCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <statement> [args...]",
		Short: "Run a mutating SQL statement",
		Long: `Run an INSERT, UPDATE, DELETE or DDL statement against the record store.
The statement is committed immediately. Extra arguments bind to ?
placeholders in order.`,
		Example: `  hms exec "UPDATE patients SET problem = ? WHERE id = ?" Recovered 1`,
		Args:    cobra.MinimumNArgs(1),
		RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
			if err := s.authz.Authorize(s.ctx, policy.OpExec, map[string]string{"statement": args[0]}); err != nil {
				return err
			}

			res, err := s.store.Execute(s.ctx, args[0], bindArgs(args[1:])...)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %d row(s) affected\n", res.RowsAffected)
			return nil
		}),
	}
}

func bindArgs(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func rowCells(rows []stores.Row) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cell(v)
		}
		out = append(out, cells)
	}
	return out
}
