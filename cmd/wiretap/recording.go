package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/wiretap/pkg/control"
)

var recordingCmd = &cobra.Command{
	Use:       "recording <on|off|status>",
	Short:     "Turn recording on or off, or show its state",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off", "status"},
	RunE:      runRecording,
}

func init() {
	rootCmd.AddCommand(recordingCmd)
}

func runRecording(cmd *cobra.Command, args []string) error {
	msg := &control.Message{Type: control.TypeGetRecording}
	switch args[0] {
	case "on", "off":
		enabled := args[0] == "on"
		msg = &control.Message{Type: control.TypeSetRecording, Enabled: &enabled}
	}

	resp, err := send(cmd, msg)
	if err != nil {
		return err
	}

	state := "off"
	if resp.Recording != nil && *resp.Recording {
		state = "on"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recording: %s\n", state)
	return nil
}
