// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var pullOut string

// pullCmd materializes a local copy of the device database without running
// a query, for use with external SQLite tooling.
var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull the database from the device",

	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		path, err := sess.pipe.Pull(context.Background())
		if err != nil {
			pterm.Printf("❌ Pull failed\n")
			return err
		}
		if pullOut != "" {
			if err := copyFile(path, pullOut); err != nil {
				return err
			}
			path = pullOut
		}
		pterm.Printf("✅ Database pulled to %s\n", path)
		return nil
	},
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func init() {
	pullCmd.Flags().StringVar(&pullOut, "out", "", "Copy the pulled database to this path")
	rootCmd.AddCommand(pullCmd)
}
