// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"droidsql/cli/internal/router"
)

var showOffset int

// showCmd prints rows from one table, paged with --limit and --offset.
var showCmd = &cobra.Command{
	Use:   "show <table>",
	Short: "Show rows from a table",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.close()
		q := fmt.Sprintf(`SELECT * FROM "%s" LIMIT %d OFFSET %d`, args[0], sess.rowLimit(), showOffset)
		res, err := sess.rt.Run(context.Background(), q, router.RunOptions{})
		if err != nil {
			return err
		}
		return renderResult(res)
	},
}

func init() {
	showCmd.Flags().IntVar(&showOffset, "offset", 0, "Number of rows to skip")
	rootCmd.AddCommand(showCmd)
}
