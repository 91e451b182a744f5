package main

import (
	"github.com/spf13/cobra"
)

// runFlags holds the switches of the root command.
type runFlags struct {
	fullPipeline    bool
	downloadOnly    bool
	processOnly     bool
	ingestOnly      bool
	dryRun          bool
	debug           bool
	watch           bool
	interval        int
	continueOnError bool
	maxFailures     int
	jsonOutput      bool
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var envFileFlag string
	var flags runFlags

	ctx := newCommandContext(&configFlag, &envFileFlag)

	rootCmd := &cobra.Command{
		Use:           "driveingest",
		Short:         "Download files from Google Drive, transcribe or extract them, and ingest the text",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, ctx, flags)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", "", "Load environment variables from this .env file")

	f := rootCmd.Flags()
	f.BoolVar(&flags.fullPipeline, "full-pipeline", false, "Run download, process and ingest (default)")
	f.BoolVar(&flags.downloadOnly, "download-only", false, "Only download files from Drive")
	f.BoolVar(&flags.processOnly, "process-only", false, "Only process files already in the download directory")
	f.BoolVar(&flags.ingestOnly, "ingest-only", false, "Only ingest artifacts already in the processed directory")
	f.BoolVar(&flags.dryRun, "dry-run", false, "Report what would happen without writing anything")
	f.BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	f.BoolVar(&flags.watch, "watch", false, "Run continuously, one cycle per interval")
	f.IntVar(&flags.interval, "interval", 0, "Seconds between watch cycle starts (default from config)")
	f.BoolVar(&flags.continueOnError, "continue-on-error", false, "Run later phases after a phase fails")
	f.IntVar(&flags.maxFailures, "max-failures", -1, "Item failures a phase tolerates; -1 fails only when every item fails")
	f.BoolVar(&flags.jsonOutput, "json", false, "Print the run summary as JSON")

	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newAuthCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newNotifyCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))

	return rootCmd
}
