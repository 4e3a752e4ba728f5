// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/smogmap/smogmap/airquality"
	"github.com/spf13/cobra"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Data source preference",
}

func printSources(w io.Writer, selected airquality.DataSource) error {
	a, b, c := strings.Repeat("─", 10), strings.Repeat("─", 14), strings.Repeat("─", 56)
	fmt.Fprintf(w, "╭──%-10s─┬─%-14s─┬─%-56s╮\n", a, b, c)
	fmt.Fprintf(w, "│ %-11s │ %-14s │ %-56s│\n", "Source", "Name", "Network")
	fmt.Fprintf(w, "├──%-10s─┼─%-14s─┼─%-56s┤\n", a, b, c)
	err := airquality.EachDataSource(func(ds airquality.DataSource) error {
		mark := " "
		if ds == selected {
			mark = "*"
		}

		_, err := fmt.Fprintf(w, "│%s%-11s │ %-14s │ %-56s│\n", mark, ds, ds.Label(), ds.Description())

		return err
	})
	fmt.Fprintf(w, "╰──%-10s─┴─%-14s─┴─%-56s╯\n", a, b, c)

	return err
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the available data sources, marking the preferred one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, closeDB, err := openStore()
		if err != nil {
			return err
		}
		defer closeDB()

		selected, err := store.SelectedDataSource(cmd.Context())
		if err != nil {
			return err
		}

		return printSources(cmd.OutOrStdout(), selected)
	},
}

var sourceGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Prints the preferred data source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, closeDB, err := openStore()
		if err != nil {
			return err
		}
		defer closeDB()

		selected, err := store.SelectedDataSource(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", selected, selected.Label())

		return nil
	},
}

func sourceArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}

	_, err := airquality.FindDataSource(args[0])

	return err
}

var sourceSetCmd = &cobra.Command{
	Use:   "set <source>",
	Short: "Stores the preferred data source",
	Long: `Stores the preferred data source. The source may be given by its wire name
(LOOKO2), its name (LookO2) or a unique prefix (look).`,
	Args: sourceArg,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := airquality.FindDataSource(args[0])
		if err != nil {
			return err
		}

		store, closeDB, err := openStore()
		if err != nil {
			return err
		}
		defer closeDB()

		if err := store.SetSelectedDataSource(cmd.Context(), source); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", source, source.Label())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourceCmd)
	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceGetCmd)
	sourceCmd.AddCommand(sourceSetCmd)
}
