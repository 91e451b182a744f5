package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"driveingest/internal/config"
	"driveingest/internal/notifications"
	"driveingest/internal/pipeline"
)

type captured struct {
	calls    int
	title    string
	tags     string
	priority string
	body     string
}

func newServer(t *testing.T, got *captured, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		got.calls++
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		got.body = string(body)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func summary(status pipeline.RunStatus) pipeline.Summary {
	return pipeline.Summary{
		RunID:   "0123456789abcdef",
		Elapsed: 12*time.Second + 300*time.Millisecond,
		Status:  status,
		Phases: []pipeline.PhaseResult{
			{Phase: pipeline.PhaseDownload, Attempted: 3, Succeeded: 3},
			{Phase: pipeline.PhaseProcess, Attempted: 3, Succeeded: 2, Failed: 1},
		},
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunSummary(context.Background(), summary(pipeline.RunFailed)); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop test notification to return nil, got %v", err)
	}
}

func TestRunSummaryPolicy(t *testing.T) {
	tests := []struct {
		name           string
		status         pipeline.RunStatus
		onFailure      bool
		onPartial      bool
		onSuccess      bool
		dryRun         bool
		expectSent     bool
		expectTitle    string
		expectPriority string
	}{
		{name: "failure sent", status: pipeline.RunFailed, onFailure: true, expectSent: true, expectTitle: "driveingest - Run Failed", expectPriority: "high"},
		{name: "failure suppressed", status: pipeline.RunFailed},
		{name: "partial sent", status: pipeline.RunPartial, onPartial: true, expectSent: true, expectTitle: "driveingest - Run Partial"},
		{name: "success suppressed by default", status: pipeline.RunCompleted, onFailure: true, onPartial: true},
		{name: "success sent", status: pipeline.RunCompleted, onSuccess: true, expectSent: true, expectTitle: "driveingest - Run Complete", expectPriority: "low"},
		{name: "dry run never sent", status: pipeline.RunFailed, onFailure: true, dryRun: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got captured
			server := newServer(t, &got, http.StatusOK)

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5
			cfg.Notifications.OnFailure = tc.onFailure
			cfg.Notifications.OnPartial = tc.onPartial
			cfg.Notifications.OnSuccess = tc.onSuccess

			s := summary(tc.status)
			s.DryRun = tc.dryRun
			if err := notifications.NewService(&cfg).NotifyRunSummary(context.Background(), s); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if sent := got.calls == 1; sent != tc.expectSent {
				t.Fatalf("expected sent=%v, got %d calls", tc.expectSent, got.calls)
			}
			if !tc.expectSent {
				return
			}
			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
			if want := "driveingest,run," + string(tc.status); got.tags != want {
				t.Fatalf("expected tags %q, got %q", want, got.tags)
			}
			if !strings.HasPrefix(got.body, "Run 01234567 ") {
				t.Fatalf("unexpected body %q", got.body)
			}
		})
	}
}

func TestFormatSummary(t *testing.T) {
	got := notifications.FormatSummary(summary(pipeline.RunPartial))
	want := "Run 01234567 partial in 12s\ndownload: 3/3 ok\nprocess: 2/3 ok, 1 failed"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNotifyErrorAndServerFailure(t *testing.T) {
	var got captured
	server := newServer(t, &got, http.StatusInternalServerError)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).NotifyError(context.Background(), errors.New("drive unreachable"), "download")
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 500") {
		t.Fatalf("expected ntfy status error, got %v", err)
	}
	if got.body != "Error during download: drive unreachable" {
		t.Fatalf("unexpected body %q", got.body)
	}
	if got.priority != "high" {
		t.Fatalf("expected high priority, got %q", got.priority)
	}
}
