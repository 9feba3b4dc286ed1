// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// cacheCmd groups cache management subcommands.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local database cache",
}

// cacheClearCmd removes the cached copy and its metadata for the target,
// so the next query pulls a fresh snapshot.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the cached database copy for the target",

	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		if err := sess.coord.Clear(); err != nil {
			pterm.Printf("❌ Could not clear cache\n")
			return err
		}
		pterm.Println("✅ Cache cleared")
		return nil
	},
}

// cacheStatusCmd shows whether a cached copy exists and where it lives.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cached copy for the target",

	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		path := sess.coord.DatabasePath()
		info, err := os.Stat(path)
		if err != nil {
			pterm.Printf("No cached copy for %s\n", sess.tgt.String())
			return nil
		}
		pterm.Printf("Cached copy: %s (%d bytes, modified %s)\n",
			path, info.Size(), info.ModTime().Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	rootCmd.AddCommand(cacheCmd)
}
