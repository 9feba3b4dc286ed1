// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"droidsql/cli/internal/bridge/adbclient"
)

// devicesCmd lists the devices adb currently sees.
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected Android devices",

	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := adbclient.New().Devices(context.Background())
		if err != nil {
			pterm.Printf("❌ Could not list devices\n")
			return err
		}
		if len(devices) == 0 {
			pterm.Println("No devices connected")
			return nil
		}
		data := pterm.TableData{{"Serial", "State"}}
		for _, d := range devices {
			data = append(data, []string{d.Serial, d.State})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
