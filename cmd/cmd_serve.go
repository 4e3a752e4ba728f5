// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/smogmap/smogmap/airquality"
	"github.com/smogmap/smogmap/server"
	"github.com/spf13/cobra"
)

var serveOptions struct {
	Addr     string
	Location locationOptions
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the current reading and the preference over a local JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, closeDB, err := openStore()
		if err != nil {
			return err
		}
		defer closeDB()

		provider, err := serveOptions.Location.provider(ctx, cmd)
		if err != nil {
			return err
		}

		client := airquality.NewClient(clientOptions)
		refresher := airquality.NewRefresher(newOrchestrator(provider, client, serveOptions.Location.Timeout))

		source, err := store.SelectedDataSource(ctx)
		if err != nil {
			return err
		}

		// first reading, so /api/reading has something to show
		refresher.RefreshAsync(ctx, source)

		return server.NewServer(refresher, store).Run(ctx, serveOptions.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveOptions.Addr, "addr", server.DefaultAddr, "listen address")
	serveOptions.Location.register(serveCmd)
}
