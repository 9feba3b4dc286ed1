// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"droidsql/cli/internal/config"
)

// configCmd shows the stored defaults.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show stored defaults",

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data := pterm.TableData{
			{"Setting", "Value"},
			{"package", cfg.Package},
			{"database", cfg.Database},
			{"serial", cfg.Serial},
			{"cache", boolString(cfg.CacheOn)},
			{"compression", boolString(cfg.Compression)},
			{"row_limit", pterm.Sprintf("%d", cfg.RowLimit)},
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

// configSetCmd persists the target-selection flags as defaults, so later
// invocations can omit --package and --db.
var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Persist the current flags as defaults",

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagPackage != "" {
			cfg.Package = flagPackage
		}
		if flagDB != "" {
			cfg.Database = flagDB
		}
		if flagSerial != "" {
			cfg.Serial = flagSerial
		}
		if flagLimit > 0 {
			cfg.RowLimit = flagLimit
		}
		if cmd.Flags().Changed("cache") {
			cfg.CacheOn = configCache
		}
		if cmd.Flags().Changed("compression") {
			cfg.Compression = configCompress
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		pterm.Println("✅ Defaults saved")
		return nil
	},
}

var (
	configCache    bool
	configCompress bool
)

func boolString(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func init() {
	configSetCmd.Flags().BoolVar(&configCache, "cache", true, "Keep a local database copy between invocations")
	configSetCmd.Flags().BoolVar(&configCompress, "compression", true, "Compress database transfers")
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
