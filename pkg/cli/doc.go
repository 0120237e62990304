/*
Package cli provides command-line interface utilities for Wiretap.

The cli package includes output formatters, typed errors and signal handling
used by the wiretap command.

Output Formatting:

Recorded traffic and the active override can be shown as a table or as JSON:

	format, err := cli.ParseOutputFormat(outputFlag)
	if err != nil {
		return err
	}
	formatter := cli.NewFormatter(format)
	if err := formatter.FormatRecords(os.Stdout, resp.Logs); err != nil {
		return err
	}

Tables are rendered with github.com/jedib0t/go-pretty/v6.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
