package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"driveingest/internal/config"
	"driveingest/internal/pipeline"
)

const userAgent = "driveingest/0.1"

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyRunSummary(ctx context.Context, summary pipeline.Summary) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		onFailure: cfg.Notifications.OnFailure,
		onPartial: cfg.Notifications.OnPartial,
		onSuccess: cfg.Notifications.OnSuccess,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	onFailure bool
	onPartial bool
	onSuccess bool
}

// NotifyRunSummary sends one message per live run whose status the policy
// selects. Dry runs are never announced.
func (n *ntfyService) NotifyRunSummary(ctx context.Context, summary pipeline.Summary) error {
	if summary.DryRun || !n.wants(summary.Status) {
		return nil
	}
	data := payload{
		message: FormatSummary(summary),
		tags:    []string{"driveingest", "run", string(summary.Status)},
	}
	switch summary.Status {
	case pipeline.RunFailed:
		data.title = "driveingest - Run Failed"
		data.priority = "high"
	case pipeline.RunPartial:
		data.title = "driveingest - Run Partial"
	default:
		data.title = "driveingest - Run Complete"
		data.priority = "low"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) wants(status pipeline.RunStatus) bool {
	switch status {
	case pipeline.RunFailed:
		return n.onFailure
	case pipeline.RunPartial:
		return n.onPartial
	case pipeline.RunCompleted:
		return n.onSuccess
	default:
		return false
	}
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "driveingest - Error",
		message:  builder.String(),
		tags:     []string{"driveingest", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "driveingest - Test",
		message:  "Notification system test",
		tags:     []string{"driveingest", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

// FormatSummary renders a summary as the plain-text notification body.
func FormatSummary(summary pipeline.Summary) string {
	var b strings.Builder
	runID := summary.RunID
	if len(runID) > 8 {
		runID = runID[:8]
	}
	fmt.Fprintf(&b, "Run %s %s in %s", runID, summary.Status, summary.Elapsed.Round(time.Second))
	for _, phase := range summary.Phases {
		fmt.Fprintf(&b, "\n%s: %d/%d ok", phase.Phase, phase.Succeeded, phase.Attempted)
		if phase.Failed > 0 {
			fmt.Fprintf(&b, ", %d failed", phase.Failed)
		}
		if phase.Skipped > 0 {
			fmt.Fprintf(&b, ", %d skipped", phase.Skipped)
		}
		if phase.AdapterError != "" {
			fmt.Fprintf(&b, " (%s)", phase.AdapterError)
		}
	}
	return b.String()
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunSummary(context.Context, pipeline.Summary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
