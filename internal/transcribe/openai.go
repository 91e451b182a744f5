package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"driveingest/internal/config"
	"driveingest/internal/language"
	"driveingest/internal/logging"
	"driveingest/internal/pipeline"
	"driveingest/internal/services"
)

// OpenAI transcribes through the OpenAI audio transcription endpoint.
type OpenAI struct {
	client  *openai.Client
	cfg     config.Transcription
	ffmpeg  string
	run     CommandRunner
	timeout time.Duration
	logger  *slog.Logger
}

// NewOpenAI builds the OpenAI engine. An API key is required.
func NewOpenAI(cfg config.Transcription, ffmpegBinary string, logger *slog.Logger) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "process", "transcriber",
			"transcription.api_key (or OPENAI_API_KEY) is required for the openai engine", nil)
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	clientCfg.HTTPClient = capturingDoer{next: &http.Client{}}
	if ffmpegBinary == "" {
		ffmpegBinary = ffmpegCommand
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(clientCfg),
		cfg:     cfg,
		ffmpeg:  ffmpegBinary,
		run:     runCommand,
		timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		logger:  logging.NewComponentLogger(logger, "transcribe"),
	}, nil
}

// WithCommandRunner replaces the runner used for ffmpeg probe slices.
func (o *OpenAI) WithCommandRunner(run CommandRunner) {
	if run != nil {
		o.run = run
	}
}

func (o *OpenAI) Engine() string { return config.EngineOpenAI }

// Transcribe sends path to the transcription model. With no forced language
// and routing enabled, the request language comes from a probe of the first
// probe_seconds of audio.
func (o *OpenAI) Transcribe(ctx context.Context, path string) (Result, error) {
	meta := pipeline.Transcription{
		RunUUID:         uuid.NewString(),
		Engine:          config.EngineOpenAI,
		Model:           o.cfg.Model,
		ForcedLanguage:  o.cfg.Language,
		LanguageRouting: o.cfg.LanguageRouting,
	}
	lang := o.cfg.Language
	if lang == "" && o.cfg.LanguageRouting {
		meta.DetectModel = o.cfg.DetectModel
		meta.ProbeSeconds = o.cfg.ProbeSeconds
		meta.RoutedLanguage, meta.FFmpegUsed = o.route(ctx, path)
		lang = meta.RoutedLanguage
	}

	reqCtx, cancel := o.requestContext(ctx)
	defer cancel()
	reqCtx, captured := withCapture(reqCtx)
	resp, err := o.client.CreateTranscription(reqCtx, openai.AudioRequest{
		Model:       o.cfg.Model,
		FilePath:    path,
		Language:    lang,
		Temperature: float32(o.cfg.Temperature),
		Format:      openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return Result{}, classifyAPIError("transcribe", err)
	}

	raw := captured.body
	if !json.Valid(raw) {
		raw, _ = json.Marshal(resp)
	}
	meta.Response = raw
	extra := parseResponseExtras(raw)
	meta.Usage = extra.toUsage()
	meta.LogprobsPresent = extra.hasLogprobs()

	o.logger.Debug("transcription complete",
		logging.String("path", path),
		logging.String("model", o.cfg.Model),
		logging.String("language", lang),
		logging.Int("chars", len(resp.Text)),
	)
	return Result{Text: strings.TrimSpace(resp.Text), Meta: meta}, nil
}

// route picks a request language from a probe transcription. When ffmpeg
// cannot cut a probe slice the whole file is sent to the detect model.
func (o *OpenAI) route(ctx context.Context, path string) (string, bool) {
	probe, usedFFmpeg := path, false
	workDir, err := os.MkdirTemp("", "driveingest-probe-")
	if err == nil {
		defer os.RemoveAll(workDir)
		slice, sliceErr := extractWAV(ctx, o.run, o.ffmpeg, path, workDir, "probe.wav", o.cfg.ProbeSeconds)
		if sliceErr == nil {
			probe, usedFFmpeg = slice, true
		} else {
			o.logger.Debug("probe slice unavailable, detecting on full file", logging.Error(sliceErr))
		}
	}

	text, err := o.detect(ctx, probe)
	if err != nil {
		logging.WarnWithContext(o.logger, "language probe failed", "language_probe_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "transcription runs without a language hint"),
		)
		return "", usedFFmpeg
	}
	lang, score := language.Detect(text)
	o.logger.Debug("language routed",
		logging.String("path", path),
		logging.String("language", lang),
		logging.String("language_name", language.DisplayName(lang)),
		logging.Int("score", score),
		logging.Bool("ffmpeg_used", usedFFmpeg),
	)
	return lang, usedFFmpeg
}

func (o *OpenAI) detect(ctx context.Context, path string) (string, error) {
	reqCtx, cancel := o.requestContext(ctx)
	defer cancel()
	resp, err := o.client.CreateTranscription(reqCtx, openai.AudioRequest{
		Model:    o.cfg.DetectModel,
		FilePath: path,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", classifyAPIError("detect language", err)
	}
	return resp.Text, nil
}

func (o *OpenAI) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.timeout)
}

// responseExtras are the parts of a transcription response go-openai drops.
type responseExtras struct {
	Usage *struct {
		Type              string `json:"type"`
		InputTokens       int    `json:"input_tokens"`
		OutputTokens      int    `json:"output_tokens"`
		TotalTokens       int    `json:"total_tokens"`
		InputTokenDetails struct {
			AudioTokens int `json:"audio_tokens"`
			TextTokens  int `json:"text_tokens"`
		} `json:"input_token_details"`
	} `json:"usage"`
	Logprobs json.RawMessage `json:"logprobs"`
}

func parseResponseExtras(raw []byte) responseExtras {
	var extra responseExtras
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &extra)
	}
	return extra
}

func (e responseExtras) toUsage() *pipeline.Usage {
	if e.Usage == nil {
		return nil
	}
	return &pipeline.Usage{
		Type:         e.Usage.Type,
		InputTokens:  e.Usage.InputTokens,
		OutputTokens: e.Usage.OutputTokens,
		TotalTokens:  e.Usage.TotalTokens,
		AudioTokens:  e.Usage.InputTokenDetails.AudioTokens,
		TextTokens:   e.Usage.InputTokenDetails.TextTokens,
	}
}

func (e responseExtras) hasLogprobs() bool {
	trimmed := strings.TrimSpace(string(e.Logprobs))
	return trimmed != "" && trimmed != "null" && trimmed != "[]"
}

// classifyAPIError tags rate limits and server errors as transient and
// everything else as an external tool failure.
func classifyAPIError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "process", op, "transcription request timed out", err)
	}
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return services.Wrap(services.ErrTransient, "process", op, "transcription API unavailable", err)
	}
	return services.Wrap(services.ErrExternalTool, "process", op, "transcription API request failed", err)
}
