package main

import (
	"errors"

	"github.com/spf13/cobra"

	"mercator-hq/wiretap/pkg/cli"
	"mercator-hq/wiretap/pkg/control"
)

// send delivers msg to the control API at --server. An unsuccessful
// response becomes a CommandError carrying the server's message.
func send(cmd *cobra.Command, msg *control.Message) (*control.Response, error) {
	client := control.NewClient(serverAddress, clientTimeout)
	resp, err := client.Send(cmd.Context(), msg)
	if err != nil {
		return nil, cli.NewCommandError(cmd.CommandPath(), err)
	}
	if !resp.Success {
		return nil, cli.NewCommandError(cmd.CommandPath(), errors.New(resp.Error))
	}
	return resp, nil
}
