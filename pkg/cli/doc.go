/*
Package cli provides command-line helpers for the tollgate command.

Output Formatting:

Results implement Tabular to be printed as aligned text or CSV. JSON output
encodes the value itself:

	formatter := cli.NewFormatter(cli.FormatCSV)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Progress Reporting:

	progress := cli.NewProgressReporter(os.Stderr, "Acquired")
	progress.Start(int64(n))
	for i := 0; i < n; i++ {
		progress.Increment()
	}
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
