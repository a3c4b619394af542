package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/wingman/plugin/analysis"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Fold a JSON list of analysis results into one report",
	Long: `Fold a JSON list of analysis results into one report. The file may hold the array
returned by GET /api/v1/sessions/:id/analysis or an object wrapping it under "results".`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		file, _ := cmd.Flags().GetString("file")
		asJSON, _ := cmd.Flags().GetBool("json")

		data, err := readInput(cmd.InOrStdin(), file)
		if err != nil {
			return err
		}
		records, err := analysis.DecodeRecordList(data)
		if err != nil {
			return err
		}
		report := analysis.Aggregate(records)

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		fmt.Fprintln(out, renderReport(report))
		return nil
	},
}

func init() {
	aggregateCmd.Flags().StringP("file", "f", "-", `results file, "-" for stdin`)
	aggregateCmd.Flags().Bool("json", false, "print the report as JSON")
}

func readInput(stdin io.Reader, file string) ([]byte, error) {
	if file == "-" || file == "" {
		data, err := io.ReadAll(stdin)
		return data, errors.Wrap(err, "failed to read stdin")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", file)
	}
	return data, nil
}
