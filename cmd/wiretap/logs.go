package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/wiretap/pkg/cli"
	"mercator-hq/wiretap/pkg/control"
)

var logsFlags struct {
	output string
	limit  int
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List recorded requests",
	Long: `List recorded requests, newest first.

Examples:
  # Show the log as a table
  wiretap logs

  # Show the five newest records as JSON
  wiretap logs --output json --limit 5

  # Remove every record
  wiretap logs clear`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var logsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded requests",
	Args:  cobra.NoArgs,
	RunE:  runLogsClear,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(logsClearCmd)

	logsCmd.Flags().StringVarP(&logsFlags.output, "output", "o", "table", "output format (table, json)")
	logsCmd.Flags().IntVarP(&logsFlags.limit, "limit", "n", 0, "show at most this many records (0 = all)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(logsFlags.output)
	if err != nil {
		return err
	}

	resp, err := send(cmd, &control.Message{Type: control.TypeGetLogs})
	if err != nil {
		return err
	}

	records := resp.Logs
	if logsFlags.limit > 0 && len(records) > logsFlags.limit {
		records = records[:logsFlags.limit]
	}
	return cli.NewFormatter(format).FormatRecords(cmd.OutOrStdout(), records)
}

func runLogsClear(cmd *cobra.Command, args []string) error {
	if _, err := send(cmd, &control.Message{Type: control.TypeClearLogs}); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Logs cleared")
	return nil
}
