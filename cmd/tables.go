// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// tablesCmd lists user tables with their row counts.
var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables in the target database",

	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.close()
		ctx := context.Background()

		tables, err := sess.insp.Tables(ctx)
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			pterm.Println("No tables found")
			return nil
		}
		data := pterm.TableData{{"Table", "Rows"}}
		for _, t := range tables {
			count, err := sess.insp.TableCount(ctx, t)
			if err != nil {
				data = append(data, []string{t, "?"})
				continue
			}
			data = append(data, []string{t, fmt.Sprintf("%d", count)})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}
