// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/smogmap/smogmap/airquality"
	"github.com/spf13/cobra"
)

// classifyLine classifies a "pm25 pm10" line; "-" marks an absent value.
func classifyLine(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || len(fields) > 2 {
		return "", fmt.Errorf("expected \"pm25 [pm10]\", got %q", line)
	}

	params := []string{airquality.ParameterPM25, airquality.ParameterPM10}
	out := make([]string, 0, len(fields))

	for i, f := range fields {
		if f == "-" {
			continue
		}

		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return "", fmt.Errorf("%s: %w", params[i], err)
		}

		c, err := airquality.Classify(params[i], v)
		if err != nil {
			return "", err
		}

		out = append(out, fmt.Sprintf("%s=%s (%s)", params[i], c, c.Color()))
	}

	return strings.Join(out, "\t"), nil
}

func classify(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		res, err := classifyLine(line)
		if err != nil {
			fmt.Fprintf(w, "%s\t%q\n", line, err)
		} else {
			fmt.Fprintf(w, "%s\t%s\n", line, res)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classifies PM2.5 and PM10 concentrations read from stdin",
	Long: `Reads one "pm25 pm10" pair per line, in μg/m³, and prints the AQI category
of each value. Use - for a missing value.

$ echo "40 - " | smog classify
40 - 	PM2.5=Unhealthy for Sensitive Groups (orange)
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		input := os.Stdin
		if isatty.IsTerminal(input.Fd()) {
			fmt.Fprintln(os.Stderr, "Enter pm25 pm10 pairs to classify, one per line…")
		}

		return classify(input, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
