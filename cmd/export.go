// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"droidsql/cli/internal/router"
)

var (
	exportQuery string
	exportOut   string
)

// exportCmd writes query results as CSV, either a whole table or the rows
// of an explicit --query. No row limit is applied; exports are complete.
var exportCmd = &cobra.Command{
	Use:   "export [table]",
	Short: "Export a table or query result as CSV",
	Long: `The export command writes rows as CSV to --output (or stdout). Pass a
table name to export it whole, or --query to export an arbitrary SELECT.
Unlike interactive reads no row limit is applied.`,
	Args: cobra.MaximumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		q := exportQuery
		if q == "" {
			if len(args) == 0 {
				return fmt.Errorf("pass a table name or --query")
			}
			q = fmt.Sprintf(`SELECT * FROM "%s"`, args[0])
		}

		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.close()
		res, err := sess.rt.Run(context.Background(), q, router.RunOptions{})
		if err != nil {
			return err
		}

		out := os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		w := csv.NewWriter(out)
		if err := w.Write(res.Columns); err != nil {
			return err
		}
		for _, row := range res.Rows {
			line := make([]string, len(res.Columns))
			for i, col := range res.Columns {
				line[i] = cellString(row[col])
			}
			if err := w.Write(line); err != nil {
				return err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
		if exportOut != "" {
			pterm.Printf("✅ Wrote %d row(s) to %s\n", len(res.Rows), exportOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportQuery, "query", "", "SELECT statement to export instead of a whole table")
	exportCmd.Flags().StringVar(&exportOut, "output", "", "Output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
