package commands

import (
	"github.com/spf13/cobra"
)

// NewColumnsCommand creates the columns command.
func NewColumnsCommand() *cobra.Command {
	opts := &inputOptions{}

	cmd := &cobra.Command{
		Use:     "columns [file|dir]...",
		Aliases: []string{"parse"},
		Short:   "Extract column lineage from SELECT statements",
		Long: `Map every column of a SELECT statement's column list to its source table,
source column, destination alias and verbatim source expression.

Qualifiers are resolved against the tables named after FROM and JOIN. A
qualifier that names no table in the statement is reported as "Unknown"; an
expression without a dotted column reference has no source table.

SQL is read from --query, from file arguments (directories are searched for
.sql files), or from stdin.`,
		Example: `  # Analyse a statement given inline
  leapcols columns -q "SELECT o.id, o.total AS amt FROM sales.orders o"

  # Analyse every .sql file under models/ as JSON
  leapcols columns models/ --output json

  # Read from stdin
  cat report.sql | leapcols columns

  # Re-run whenever the file changes
  leapcols columns report.sql --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			return runInput(cmd, cc, args, opts, cc.Renderer.RenderColumns)
		},
	}

	addInputFlags(cmd, opts)

	return cmd
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	opts := &inputOptions{}

	cmd := &cobra.Command{
		Use:   "tables [file|dir]...",
		Short: "Show the table aliases a SELECT statement binds",
		Long: `List every alias bound by the FROM and JOIN clauses of a SELECT statement,
in scan order, with the source each one resolves to. Derived tables resolve
to the first table their sub-select reads from.`,
		Example: `  # Show the aliases of a statement
  leapcols tables -q "SELECT 1 FROM (SELECT x FROM base_table) M JOIN dim d ON true"

  # As CSV, for every .sql file in a directory
  leapcols tables queries/ -o csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			return runInput(cmd, cc, args, opts, cc.Renderer.RenderTables)
		},
	}

	addInputFlags(cmd, opts)

	return cmd
}
