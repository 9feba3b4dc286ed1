// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"droidsql/cli/internal/bridge/adbclient"
	"droidsql/cli/internal/httpapi"
	"droidsql/cli/internal/xdg"
)

var serveAddr string

// serveCmd runs the HTTP API so frontends can browse and query the target
// database. The server keeps one execution session alive across requests.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API for the target database",

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tgt, err := resolveTarget(cfg)
		if err != nil {
			return err
		}
		cacheRoot, err := xdg.CacheDir()
		if err != nil {
			return err
		}
		limit := flagLimit
		if limit <= 0 {
			limit = cfg.RowLimit
		}

		srv := httpapi.New(httpapi.Deps{
			Bridge:       adbclient.New(),
			Target:       tgt,
			CacheRoot:    cacheRoot,
			CacheOn:      cfg.CacheOn && !flagNoCache,
			Compress:     cfg.Compression && !flagNoCompress,
			ForceLocal:   flagForceLocal,
			DefaultLimit: limit,
		})

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pterm.Printf("Serving %s on http://%s\n", tgt.String(), serveAddr)
		return srv.ListenAndServe(ctx, serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "Listen address")
	rootCmd.AddCommand(serveCmd)
}
