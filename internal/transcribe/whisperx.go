package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"driveingest/internal/config"
	"driveingest/internal/logging"
	"driveingest/internal/pipeline"
	"driveingest/internal/services"
)

// WhisperX invocation constants.
const (
	defaultWhisperXModel = "large-v3"
	cudaIndexURL         = "https://download.pytorch.org/whl/cu128"
	pypiIndexURL         = "https://pypi.org/simple"
	whisperXBatchSize    = "4"
	whisperXChunkSize    = "15"
	whisperXVADOnset     = "0.08"
	whisperXVADOffset    = "0.07"
	whisperXBeamSize     = "10"
	whisperXBestOf       = "10"
	whisperXTemperature  = "0.0"
	whisperXPatience     = "1.0"
	whisperXVADMethod    = "silero"
	cpuDevice            = "cpu"
	cudaDevice           = "cuda"
	cpuComputeType       = "float32"

	uvxCommand    = "uvx"
	ffmpegCommand = "ffmpeg"
)

// WhisperX transcribes locally by running whisperx through uvx.
type WhisperX struct {
	cfg    config.Transcription
	ffmpeg string
	run    CommandRunner
	logger *slog.Logger
}

// NewWhisperX builds the WhisperX engine.
func NewWhisperX(cfg config.Transcription, ffmpegBinary string, logger *slog.Logger) *WhisperX {
	if ffmpegBinary == "" {
		ffmpegBinary = ffmpegCommand
	}
	if cfg.WhisperXModel == "" {
		cfg.WhisperXModel = defaultWhisperXModel
	}
	return &WhisperX{
		cfg:    cfg,
		ffmpeg: ffmpegBinary,
		run:    runCommand,
		logger: logging.NewComponentLogger(logger, "transcribe"),
	}
}

// WithCommandRunner replaces the runner used for ffmpeg and uvx.
func (w *WhisperX) WithCommandRunner(run CommandRunner) {
	if run != nil {
		w.run = run
	}
}

func (w *WhisperX) Engine() string { return config.EngineWhisperX }

// Transcribe converts path to WAV, runs whisperx on it and joins the
// segment texts of the JSON output.
func (w *WhisperX) Transcribe(ctx context.Context, path string) (Result, error) {
	workDir, err := os.MkdirTemp("", "driveingest-whisperx-")
	if err != nil {
		return Result{}, fmt.Errorf("whisperx: create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	wav, err := extractWAV(ctx, w.run, w.ffmpeg, path, workDir, "audio.wav", 0)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "process", "whisperx", "extract audio", err)
	}
	outputDir := filepath.Join(workDir, "out")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("whisperx: ensure output dir: %w", err)
	}
	if err := w.run(ctx, uvxCommand, w.buildArgs(wav, outputDir)...); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "process", "whisperx", "transcribe", err)
	}

	jsonPath := filepath.Join(outputDir, strings.TrimSuffix(filepath.Base(wav), filepath.Ext(wav))+".json")
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "process", "whisperx", "read output", err)
	}
	text, err := segmentText(raw)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "process", "whisperx", "parse output", err)
	}

	w.logger.Debug("whisperx transcription complete",
		logging.String("path", path),
		logging.String("model", w.cfg.WhisperXModel),
		logging.Bool("cuda", w.cfg.WhisperXCUDAEnabled),
	)
	return Result{
		Text: text,
		Meta: pipeline.Transcription{
			RunUUID:        uuid.NewString(),
			Engine:         config.EngineWhisperX,
			Model:          w.cfg.WhisperXModel,
			ForcedLanguage: w.cfg.Language,
			FFmpegUsed:     true,
			Response:       json.RawMessage(raw),
		},
	}, nil
}

func (w *WhisperX) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 40)
	if w.cfg.WhisperXCUDAEnabled {
		args = append(args, "--index-url", cudaIndexURL, "--extra-index-url", pypiIndexURL)
	} else {
		args = append(args, "--index-url", pypiIndexURL)
	}
	args = append(args,
		"whisperx",
		source,
		"--model", w.cfg.WhisperXModel,
		"--batch_size", whisperXBatchSize,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--chunk_size", whisperXChunkSize,
		"--vad_onset", whisperXVADOnset,
		"--vad_offset", whisperXVADOffset,
		"--vad_method", whisperXVADMethod,
		"--beam_size", whisperXBeamSize,
		"--best_of", whisperXBestOf,
		"--temperature", whisperXTemperature,
		"--patience", whisperXPatience,
	)
	if w.cfg.Language != "" {
		args = append(args, "--language", w.cfg.Language)
	}
	if w.cfg.WhisperXCUDAEnabled {
		args = append(args, "--device", cudaDevice)
	} else {
		args = append(args, "--device", cpuDevice, "--compute_type", cpuComputeType)
	}
	return args
}

type whisperXSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperXPayload struct {
	Segments []whisperXSegment `json:"segments"`
}

func segmentText(raw []byte) (string, error) {
	var payload whisperXPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", err
	}
	parts := make([]string, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
