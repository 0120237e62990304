package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/wiretap/pkg/cli"
	"mercator-hq/wiretap/pkg/control"
	"mercator-hq/wiretap/pkg/traffic/override"
)

var overrideFlags struct {
	headers []string
	output  string
}

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Manage the request header override",
	Long: `Manage the single header override rule.

The override sets request headers on API requests whose URL starts with the
given prefix. Setting a new override replaces the previous one.

Examples:
  wiretap override set https://api.example.com/v1 -H "Authorization: Bearer dev"
  wiretap override show
  wiretap override clear`,
}

var overrideSetCmd = &cobra.Command{
	Use:   "set <url-prefix>",
	Short: "Install the header override for a URL prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runOverrideSet,
}

var overrideClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the header override",
	Args:  cobra.NoArgs,
	RunE:  runOverrideClear,
}

var overrideShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active header override",
	Args:  cobra.NoArgs,
	RunE:  runOverrideShow,
}

func init() {
	rootCmd.AddCommand(overrideCmd)
	overrideCmd.AddCommand(overrideSetCmd, overrideClearCmd, overrideShowCmd)

	overrideSetCmd.Flags().StringArrayVarP(&overrideFlags.headers, "header", "H", nil, `header to set, "Name: value" or "Name=value" (repeatable)`)
	_ = overrideSetCmd.MarkFlagRequired("header")
	overrideShowCmd.Flags().StringVarP(&overrideFlags.output, "output", "o", "table", "output format (table, json)")
}

// parseHeader splits "Name: value" or "Name=value". The value may be empty.
func parseHeader(raw string) (override.Header, error) {
	sep := strings.IndexAny(raw, ":=")
	if sep <= 0 {
		return override.Header{}, cli.NewConfigError("header", fmt.Sprintf("invalid header %q, expected \"Name: value\"", raw))
	}
	name := strings.TrimSpace(raw[:sep])
	if name == "" {
		return override.Header{}, cli.NewConfigError("header", fmt.Sprintf("invalid header %q, name is empty", raw))
	}
	return override.Header{Name: name, Value: strings.TrimSpace(raw[sep+1:])}, nil
}

func runOverrideSet(cmd *cobra.Command, args []string) error {
	headers := make([]override.Header, 0, len(overrideFlags.headers))
	for _, raw := range overrideFlags.headers {
		h, err := parseHeader(raw)
		if err != nil {
			return err
		}
		headers = append(headers, h)
	}

	_, err := send(cmd, &control.Message{
		Type:    control.TypeSetRequestHeaders,
		URL:     args[0],
		Headers: headers,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Override set for %s (%d headers)\n", args[0], len(headers))
	return nil
}

func runOverrideClear(cmd *cobra.Command, args []string) error {
	if _, err := send(cmd, &control.Message{Type: control.TypeClearRequestHeaders}); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Override cleared")
	return nil
}

func runOverrideShow(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(overrideFlags.output)
	if err != nil {
		return err
	}
	resp, err := send(cmd, &control.Message{Type: control.TypeGetOverride})
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatRule(cmd.OutOrStdout(), resp.Override)
}
