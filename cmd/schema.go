// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// schemaCmd shows the column layout of one table (PRAGMA table_info).
var schemaCmd = &cobra.Command{
	Use:   "schema <table>",
	Short: "Show the column structure of a table",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.close()
		res, err := sess.insp.TableInfo(context.Background(), args[0])
		if err != nil {
			return err
		}
		return renderResult(res)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
