// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/smogmap/smogmap/airquality"
	"github.com/smogmap/smogmap/settings"
	"github.com/smogmap/smogmap/spatial"
	"github.com/spf13/cobra"
)

var fetchOptions struct {
	Source   string
	JSON     bool
	Location locationOptions
}

// fetchOutput is the --json document.
type fetchOutput struct {
	Requested     airquality.DataSource `json:"requested"`
	Used          airquality.DataSource `json:"used"`
	FellBack      bool                  `json:"fellBack"`
	Coordinate    spatial.Point         `json:"coordinate"`
	LocationError string                `json:"locationError,omitempty"`
	Card          *airquality.Card      `json:"card"`
	Reading       *airquality.Reading   `json:"reading"`
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetches and prints the reading nearest to you",
	Long: `Fetches the reading nearest to the user location from the preferred data
source (or --source) and prints it as a card. When the source fails the
nearest sensor from any network is shown instead.

$ smog fetch --lat 50.179 --lng 19.150
Luftdaten
  2025-07-12 10:13:18 at (50.179211, 19.150425), 0 m away
  PM2.5     2.05 μg/m³  Good [green]
  PM10      3.63 μg/m³  Good [green]
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var store settings.Store = &settings.MemoryStore{}
		if fetchOptions.Source == "" {
			db, closeDB, err := openStore()
			if err != nil {
				return err
			}
			defer closeDB()

			store = db
		}

		source, err := resolveSource(ctx, fetchOptions.Source, store)
		if err != nil {
			return err
		}

		provider, err := fetchOptions.Location.provider(ctx, cmd)
		if err != nil {
			return err
		}

		client := airquality.NewClient(clientOptions)
		spin := newSpinner("Fetching " + source.Label())
		unsubscribe := client.Subscribe(func(s airquality.ClientStatus) { spin.Set(s.Busy) })
		defer unsubscribe()

		result, err := newOrchestrator(provider, client, fetchOptions.Location.Timeout).FetchWithFallback(ctx, source)
		if err != nil {
			return err
		}

		card := airquality.NewCard(result.Reading, result.Coordinate)

		if fetchOptions.JSON {
			out := fetchOutput{
				Requested:  result.Requested,
				Used:       result.Used,
				FellBack:   result.FellBack,
				Coordinate: result.Coordinate,
				Card:       card,
				Reading:    result.Reading,
			}
			if result.LocationErr != nil {
				out.LocationError = airquality.HumanMessage(result.LocationErr)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(out)
		}

		if result.FellBack {
			fmt.Fprintf(cmd.OutOrStdout(), "%s did not answer, showing the nearest sensor from any network.\n",
				result.Requested.Label())
		}

		return card.WriteText(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchOptions.Source, "source", "s", "", "data source, overrides the stored preference")
	fetchCmd.Flags().BoolVar(&fetchOptions.JSON, "json", false, "print JSON instead of a card")
	fetchOptions.Location.register(fetchCmd)
}
