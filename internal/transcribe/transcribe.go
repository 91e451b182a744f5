package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"driveingest/internal/config"
	"driveingest/internal/pipeline"
	"driveingest/internal/services"
)

// Result is a finished transcription.
type Result struct {
	Text string
	Meta pipeline.Transcription
}

// Transcriber converts one audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (Result, error)
	Engine() string
}

// CommandRunner executes an external command. Tests replace it to avoid
// spawning ffmpeg or uvx.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// New builds the transcriber selected by transcription.engine.
func New(cfg *config.Config, logger *slog.Logger) (Transcriber, error) {
	switch cfg.Transcription.Engine {
	case config.EngineOpenAI, "":
		return NewOpenAI(cfg.Transcription, cfg.FFmpegBinary(), logger)
	case config.EngineWhisperX:
		return NewWhisperX(cfg.Transcription, cfg.FFmpegBinary(), logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "process", "transcriber",
			fmt.Sprintf("unknown transcription engine %q", cfg.Transcription.Engine), nil)
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if name == uvxCommand && os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
