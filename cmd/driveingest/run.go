package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"driveingest/internal/config"
	"driveingest/internal/drive"
	"driveingest/internal/ingest"
	"driveingest/internal/logging"
	"driveingest/internal/notifications"
	"driveingest/internal/pipeline"
	"driveingest/internal/process"
	"driveingest/internal/runlock"
	"driveingest/internal/services"
	"driveingest/internal/store"
	"driveingest/internal/transcribe"
)

func runPipeline(cmd *cobra.Command, ctx *commandContext, flags runFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	rc := buildRunConfiguration(cmd, cfg, flags)
	if err := rc.Validate(); err != nil {
		return err
	}

	started := time.Now()
	logger, logPath, err := newRunLogger(cfg, rc, flags.jsonOutput, started)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "logging", "init", "", err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath)
	logger.Debug("configuration loaded", logging.String("config_path", ctx.configPath))

	if !rc.DryRun {
		lock, err := runlock.Acquire(cfg.LockPath())
		if err != nil {
			return err
		}
		defer lock.Release() //nolint:errcheck
	}

	runCtx := cmd.Context()
	adapters, err := buildAdapters(runCtx, cfg, rc.Mode, logger)
	if err != nil {
		return err
	}

	orchestrator := pipeline.NewOrchestrator(adapters, pipeline.WithLogger(logger))
	notifier := notifications.NewService(cfg)
	out := cmd.OutOrStdout()

	report := func(summary pipeline.Summary) {
		if err := printSummary(out, summary, flags.jsonOutput); err != nil {
			logger.Warn("print summary failed", logging.Error(err))
		}
		notifyCtx := context.WithoutCancel(runCtx)
		if err := notifier.NotifyRunSummary(notifyCtx, summary); err != nil {
			warnNotifyFailed(logger, err)
		}
		if summary.DryRun {
			return
		}
		for _, phase := range summary.Phases {
			if phase.AdapterError == "" {
				continue
			}
			if err := notifier.NotifyError(notifyCtx, errors.New(phase.AdapterError), phase.Phase.String()+" phase"); err != nil {
				warnNotifyFailed(logger, err)
			}
		}
	}

	if rc.Watch {
		return orchestrator.Watch(runCtx, rc, report)
	}

	summary, err := orchestrator.Run(runCtx, rc)
	if err != nil {
		return err
	}
	report(summary)
	if summary.Failed() {
		return errRunFailed
	}
	return nil
}

// buildRunConfiguration merges CLI flags over the [pipeline] config section.
// A flag wins only when it was passed explicitly.
func buildRunConfiguration(cmd *cobra.Command, cfg *config.Config, flags runFlags) pipeline.RunConfiguration {
	interval := cfg.Pipeline.IntervalSeconds
	if cmd.Flags().Changed("interval") {
		interval = flags.interval
		if interval == 0 {
			interval = -1
		}
	}
	maxFailures := cfg.Pipeline.MaxItemFailures
	if cmd.Flags().Changed("max-failures") {
		maxFailures = flags.maxFailures
	}
	return pipeline.NewRunConfiguration(pipeline.Flags{
		FullPipeline:    flags.fullPipeline,
		DownloadOnly:    flags.downloadOnly,
		ProcessOnly:     flags.processOnly,
		IngestOnly:      flags.ingestOnly,
		DryRun:          flags.dryRun,
		Watch:           flags.watch,
		Debug:           flags.debug,
		ContinueOnError: flags.continueOnError || cfg.Pipeline.ContinueOnError,
		IntervalSeconds: interval,
		MaxFailures:     maxFailures,
	})
}

// newRunLogger logs to the console and a per-run file. With --json the console
// stream moves to stderr so stdout carries only the summary.
func newRunLogger(cfg *config.Config, rc pipeline.RunConfiguration, jsonOutput bool, started time.Time) (*slog.Logger, string, error) {
	var opts []logging.RunOption
	if rc.Debug {
		opts = append(opts, logging.WithLevel("debug"))
	}
	if jsonOutput {
		opts = append(opts, logging.WithConsole("stderr"))
	}
	return logging.NewFromConfig(cfg, started, opts...)
}

// buildAdapters constructs only the adapters the mode selects, so an
// ingest-only run needs neither Drive credentials nor a transcription key.
// The store is opened by the process and ingest phases themselves, so an
// unreachable database fails that phase instead of the whole command.
func buildAdapters(ctx context.Context, cfg *config.Config, mode pipeline.Mode, logger *slog.Logger) (pipeline.Adapters, error) {
	var adapters pipeline.Adapters
	openStore := store.OpenerFor(cfg)

	if mode.Selects(pipeline.PhaseDownload) {
		httpClient, err := drive.HTTPClient(ctx, cfg.Drive)
		if err != nil {
			return adapters, err
		}
		client, err := drive.NewClient(ctx, httpClient)
		if err != nil {
			return adapters, services.Wrap(services.ErrConfiguration, "download", "create drive client", "", err)
		}
		adapters.Downloader = drive.NewDownloader(client, cfg, logger)
	}

	if mode.Selects(pipeline.PhaseProcess) {
		transcriber, err := transcribe.New(cfg, logger)
		if err != nil {
			return adapters, err
		}
		adapters.Processor = process.NewProcessor(cfg, logger,
			process.WithTranscriber(transcriber),
			process.WithLookupOpener(func(ctx context.Context) (process.SourceLookup, func() error, error) {
				st, err := openStore(ctx)
				if err != nil {
					return nil, nil, err
				}
				return st, st.Close, nil
			}),
		)
	}

	if mode.Selects(pipeline.PhaseIngest) {
		adapters.Ingestor = ingest.NewIngestor(openStore, cfg, logger)
	}
	return adapters, nil
}

func warnNotifyFailed(logger *slog.Logger, err error) {
	logging.WarnWithContext(logger, "notification failed", "notification_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "run result was not pushed to ntfy"),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
	)
}

func printSummary(w io.Writer, summary pipeline.Summary, asJSON bool) error {
	if asJSON {
		return writeJSON(w, summary)
	}
	_, err := fmt.Fprintln(w, renderSummary(summary))
	return err
}
