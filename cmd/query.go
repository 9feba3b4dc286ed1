// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"droidsql/cli/internal/router"
)

// queryCmd runs one SQL statement against the target database. Reads print
// a table; writes print a confirmation and sync the change back when the
// query ran on a pulled copy.
var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run a SQL statement against the target database",
	Long: `The query command executes a single SQL statement. SELECTs are capped at
the configured row limit unless the statement carries its own LIMIT clause.
Write statements executed against a pulled copy are pushed back to the
device; a failed push leaves the device stale and prints a warning.`,
	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.close()
		ctx := context.Background()

		res, err := sess.rt.Run(ctx, args[0], router.RunOptions{Limit: sess.rowLimit()})
		if err != nil {
			pterm.Printf("❌ %s\n", queryFailureMessage(sess.rt.LastError(), err))
			return err
		}
		return renderResult(res)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
