package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"driveingest/internal/config"
)

// RunLogPattern matches per-run log files written by NewFromConfig.
const RunLogPattern = "driveingest-*.log"

// Options describes logger construction parameters.
type Options struct {
	Level string
	// Format is "console" or "json".
	Format string
	// OutputPaths lists "stdout", "stderr", or file paths.
	OutputPaths []string
	// Development forces caller information on every record.
	Development bool
	// NoColor disables ANSI level colours even on a terminal.
	NoColor bool
}

// New constructs a slog logger using the provided options. Terminal outputs and
// file outputs get separate handlers so colour codes never reach a file.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	addSource := opts.Development || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}
	if format != "console" && format != "json" {
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	sinks, err := openSinks(defaultSlice(opts.OutputPaths, []string{"stdout"}))
	if err != nil {
		return nil, err
	}

	handlers := make([]slog.Handler, 0, len(sinks))
	for _, sink := range sinks {
		switch format {
		case "json":
			handlers = append(handlers, newJSONHandler(sink.writer, levelVar, addSource))
		default:
			color := sink.terminal && !opts.NoColor && os.Getenv("NO_COLOR") == ""
			handlers = append(handlers, newConsoleHandler(sink.writer, levelVar, addSource, color))
		}
	}
	return slog.New(newFanoutHandler(handlers...)), nil
}

// RunOption adjusts the options NewFromConfig derives from the config.
type RunOption func(*Options)

// WithLevel overrides the configured level, e.g. for --debug.
func WithLevel(level string) RunOption {
	return func(o *Options) {
		o.Level = level
		o.Development = strings.EqualFold(level, "debug")
	}
}

// WithConsole sends console output to "stdout" or "stderr".
func WithConsole(stream string) RunOption {
	return func(o *Options) {
		if len(o.OutputPaths) > 0 {
			o.OutputPaths[0] = stream
		}
	}
}

// NewFromConfig creates a logger that writes to the console and a per-run log
// file in the configured log directory. The returned path is empty when no log
// directory is configured.
func NewFromConfig(cfg *config.Config, started time.Time, opts ...RunOption) (*slog.Logger, string, error) {
	if cfg == nil {
		logger, err := New(Options{Level: "info", Format: "console"})
		return logger, "", err
	}

	outputs := []string{"stdout"}
	var logPath string
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, "", fmt.Errorf("ensure log directory: %w", err)
		}
		logPath = filepath.Join(dir, RunLogName(started))
		outputs = append(outputs, logPath)
	}

	options := Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	}
	for _, opt := range opts {
		opt(&options)
	}
	logger, err := New(options)
	if err != nil {
		return nil, "", err
	}
	return logger, logPath, nil
}

// RunLogName returns the log file name for a run started at the given time.
func RunLogName(started time.Time) string {
	if started.IsZero() {
		started = time.Now()
	}
	return "driveingest-" + started.UTC().Format("20060102T150405Z") + ".log"
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultSlice(value []string, fallback []string) []string {
	if len(value) == 0 {
		return append([]string(nil), fallback...)
	}
	return append([]string(nil), value...)
}

type sink struct {
	writer   io.Writer
	terminal bool
}

func openSinks(paths []string) ([]sink, error) {
	seen := map[string]struct{}{}
	var sinks []sink
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			sinks = append(sinks, sink{writer: os.Stdout, terminal: isTerminal(os.Stdout)})
		case "stderr":
			sinks = append(sinks, sink{writer: os.Stderr, terminal: isTerminal(os.Stderr)})
		default:
			if err := ensureLogDir(trimmed); err != nil {
				return nil, err
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			sinks = append(sinks, sink{writer: file})
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, sink{writer: os.Stdout, terminal: isTerminal(os.Stdout)})
	}
	return sinks, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	opts := slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Key = "level"
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.MessageKey:
				attr.Key = "msg"
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	}
	return slog.NewJSONHandler(w, &opts)
}
