// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the droidsql tool.
// It implements subcommands for querying, inspecting and transferring an
// Android app's SQLite database over adb, using the Cobra CLI framework.
// Target selection flags are persistent so every subcommand accepts the
// same --package/--db pair, falling back to stored configuration.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	flagPackage    string
	flagDB         string
	flagUser       int
	flagSerial     string
	flagForceLocal bool
	flagNoCache    bool
	flagForcePull  bool
	flagNoCompress bool
	flagLimit      int
	showVersion    bool
)

// rootCmd represents the base command when called without any subcommands.
// Without arguments it prints an overview of the target database.
var rootCmd = &cobra.Command{
	Use:   "droidsql",
	Short: "Query SQLite databases inside Android apps over adb",
	Long: `droidsql runs SQL against a SQLite database living in an Android app's
private storage. When the app is debuggable the query executes directly on
the device; otherwise the database is pulled to a local cache, queried
there, and written changes are synced back.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("droidsql %s\n", Version)
			return nil
		}
		if flagPackage == "" && flagDB == "" {
			cfg, err := loadConfig()
			if err != nil || cfg.Package == "" {
				return cmd.Help()
			}
		}
		return runOverview(context.Background())
	},
}

// runOverview prints the target, connection state and per-table row counts.
func runOverview(ctx context.Context) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.close()
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Target:   ") +
		pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(sess.tgt.String()))
	pterm.Println()

	tables, err := sess.insp.Tables(ctx)
	if err != nil {
		pterm.Printf("❌ Could not read database\n")
		return err
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
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagPackage, "package", "p", "", "Android application package name")
	rootCmd.PersistentFlags().StringVarP(&flagDB, "db", "d", "", "Database file name inside the app's storage")
	rootCmd.PersistentFlags().IntVar(&flagUser, "user", -1, "Android user id for multi-user devices")
	rootCmd.PersistentFlags().StringVarP(&flagSerial, "device", "s", "", "Device serial when several are connected")
	rootCmd.PersistentFlags().BoolVar(&flagForceLocal, "force-local", false, "Skip direct device execution; always pull and run locally")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Do not keep a local database copy between invocations")
	rootCmd.PersistentFlags().BoolVar(&flagForcePull, "force-pull", false, "Ignore the cached copy and pull a fresh one")
	rootCmd.PersistentFlags().BoolVar(&flagNoCompress, "no-compression", false, "Transfer the database uncompressed")
	rootCmd.PersistentFlags().IntVarP(&flagLimit, "limit", "n", 0, "Row limit for read queries (0 uses the configured default)")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
}
