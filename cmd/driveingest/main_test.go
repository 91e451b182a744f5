package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"driveingest/internal/pipeline"
	"driveingest/internal/process"
	"driveingest/internal/runlock"
)

type jsonSummary struct {
	Status string `json:"status"`
	DryRun bool   `json:"dry_run"`
	Phases []struct {
		Phase     string `json:"phase"`
		Status    string `json:"status"`
		Attempted int    `json:"attempted"`
		Succeeded int    `json:"succeeded"`
		Failed    int    `json:"failed"`
		Skipped   int    `json:"skipped"`
		Adapter   string `json:"adapter_error"`
	} `json:"phases"`
}

func decodeSummary(t *testing.T, out string) jsonSummary {
	t.Helper()
	var s jsonSummary
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	return s
}

func writeArtifacts(t *testing.T, env *cliTestEnv, names ...string) {
	t.Helper()
	for _, name := range names {
		source := filepath.Join(env.downloadDir, name)
		a := pipeline.Artifact{
			Path:       process.ArtifactPath(env.processedDir, source),
			SourcePath: source,
			SourceName: name,
			Kind:       pipeline.KindText,
			Title:      strings.TrimSuffix(name, filepath.Ext(name)),
			Text:       "body of " + name,
			CreatedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		}
		if err := process.WriteArtifact(a); err != nil {
			t.Fatalf("write artifact: %v", err)
		}
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, stderr, code := env.run(t, "config", "validate")
	if code != 0 {
		t.Fatalf("config validate exit %d: %s", code, stderr)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, stderr, code = env.run(t, "config", "init", "--path", target)
	if code != 0 {
		t.Fatalf("config init exit %d: %s", code, stderr)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, stderr, code = env.run(t, "config", "init", "--path", target)
	if code == 0 {
		t.Fatal("expected init to refuse overwriting an existing file")
	}
	requireContains(t, stderr, "already exists")
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := setupCLITestEnv(t)

	out, stderr, code := env.run(t, "config", "show")
	if code != 0 {
		t.Fatalf("config show exit %d: %s", code, stderr)
	}
	requireContains(t, out, "[transcription]")
	requireContains(t, out, "********")
	if strings.Contains(out, "'test'") || strings.Contains(out, `"test"`) {
		t.Fatalf("api key leaked into output:\n%s", out)
	}
}

func TestConflictingPhaseFlagsExitWithConfigurationCode(t *testing.T) {
	env := setupCLITestEnv(t)
	_, stderr, code := env.run(t, "--download-only", "--ingest-only")
	if code != 2 {
		t.Fatalf("expected exit 2, got %d (%s)", code, stderr)
	}
	requireContains(t, stderr, "mutually exclusive")
}

func TestInvalidConfigExitsWithConfigurationCode(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[database]\ndriver = \"oracle\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, code := env.run(t, "--ingest-only")
	if code != 2 {
		t.Fatalf("expected exit 2 for an invalid config, got %d", code)
	}
}

func TestIngestOnlyIsIdempotent(t *testing.T) {
	env := setupCLITestEnv(t)
	writeArtifacts(t, env, "a.txt", "b.txt", "c.txt")

	out, stderr, code := env.run(t, "--ingest-only", "--json")
	if code != 0 {
		t.Fatalf("first run exit %d: %s", code, stderr)
	}
	first := decodeSummary(t, out)
	if len(first.Phases) != 1 || first.Phases[0].Phase != "ingest" {
		t.Fatalf("expected only the ingest phase, got %+v", first.Phases)
	}
	if first.Phases[0].Succeeded != 3 || first.Status != "completed" {
		t.Fatalf("unexpected first run: %+v", first)
	}

	out, stderr, code = env.run(t, "--ingest-only", "--json")
	if code != 0 {
		t.Fatalf("second run exit %d: %s", code, stderr)
	}
	second := decodeSummary(t, out).Phases[0]
	if second.Succeeded != 0 || second.Attempted != 3 || second.Skipped != 3 {
		t.Fatalf("expected all skipped on rerun, got %+v", second)
	}
}

func TestDryRunIngestWritesNothing(t *testing.T) {
	env := setupCLITestEnv(t)
	writeArtifacts(t, env, "a.txt")

	out, stderr, code := env.run(t, "--ingest-only", "--dry-run", "--json")
	if code != 0 {
		t.Fatalf("dry run exit %d: %s", code, stderr)
	}
	summary := decodeSummary(t, out)
	if !summary.DryRun || len(summary.Phases) != 1 || summary.Phases[0].Attempted != 1 {
		t.Fatalf("unexpected dry-run summary: %+v", summary)
	}

	out, stderr, code = env.run(t, "status", "--json")
	if code != 0 {
		t.Fatalf("status exit %d: %s", code, stderr)
	}
	var status struct {
		Stats struct{ Entries int } `json:"stats"`
	}
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Stats.Entries != 0 {
		t.Fatalf("dry run must not ingest, found %d entries", status.Stats.Entries)
	}
}

func TestProcessOnlyExtractsDownloadedText(t *testing.T) {
	env := setupCLITestEnv(t)
	source := filepath.Join(env.downloadDir, "001_abc", "note.txt")
	if err := os.MkdirAll(filepath.Dir(source), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(source, []byte("Shopping list\nmilk\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	out, stderr, code := env.run(t, "--process-only", "--json")
	if code != 0 {
		t.Fatalf("process exit %d: %s", code, stderr)
	}
	summary := decodeSummary(t, out)
	if len(summary.Phases) != 1 || summary.Phases[0].Succeeded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	artifact, err := process.LoadArtifact(process.ArtifactPath(env.processedDir, source))
	if err != nil {
		t.Fatalf("load artifact: %v", err)
	}
	if artifact.Title != "Shopping list" {
		t.Fatalf("unexpected title %q", artifact.Title)
	}
}

func TestStatusListsIngestedEntries(t *testing.T) {
	env := setupCLITestEnv(t)
	writeArtifacts(t, env, "journal.txt")
	if _, stderr, code := env.run(t, "--ingest-only"); code != 0 {
		t.Fatalf("ingest exit %d: %s", code, stderr)
	}

	out, stderr, code := env.run(t, "status")
	if code != 0 {
		t.Fatalf("status exit %d: %s", code, stderr)
	}
	requireContains(t, out, "Entries")
	requireContains(t, out, "journal")
}

func TestSecondInstanceIsRejected(t *testing.T) {
	env := setupCLITestEnv(t)
	lock, err := runlock.Acquire(filepath.Join(env.stateDir, "driveingest.lock"))
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	defer lock.Release() //nolint:errcheck

	_, stderr, code := env.run(t, "--ingest-only")
	if code != 2 {
		t.Fatalf("expected exit 2 while locked, got %d (%s)", code, stderr)
	}
	requireContains(t, stderr, "already running")

	if _, stderr, code := env.run(t, "--ingest-only", "--dry-run"); code != 0 {
		t.Fatalf("dry run should not need the lock, exit %d: %s", code, stderr)
	}
}

func TestDownloadWithoutCredentialsIsConfigurationError(t *testing.T) {
	env := setupCLITestEnv(t)
	_, stderr, code := env.run(t, "--download-only")
	if code != 2 {
		t.Fatalf("expected exit 2 without a client secret, got %d (%s)", code, stderr)
	}
}

func TestNotifyTestWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, code := env.run(t, "notify", "test")
	if code != 0 {
		t.Fatalf("notify test exit %d", code)
	}
	requireContains(t, out, "not configured")
}

func TestRenderSummary(t *testing.T) {
	summary := pipeline.Summary{
		RunID:   "0123456789abcdef",
		Elapsed: 1500 * time.Millisecond,
		Status:  pipeline.RunPartial,
		Phases: []pipeline.PhaseResult{
			{Phase: pipeline.PhaseProcess, Status: pipeline.StatusCompleted, Attempted: 3, Succeeded: 2, Failed: 1,
				Errors: []pipeline.ItemError{{Key: "/d/bad.pdf", Reason: "extract failed"}}},
			{Phase: pipeline.PhaseIngest, Status: pipeline.StatusCompleted, Attempted: 2, Succeeded: 2},
		},
	}
	out := renderSummary(summary)
	requireContains(t, out, "process")
	requireContains(t, out, "2/3")
	requireContains(t, out, "Run 01234567: PARTIAL")
	requireContains(t, out, "/d/bad.pdf: extract failed")
}

func TestLogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, code := env.run(t, "logs"); code != 1 {
		t.Fatalf("expected exit 1 before any run log exists, got %d", code)
	}

	writeArtifacts(t, env, "a.txt")
	if _, stderr, code := env.run(t, "--ingest-only", "--debug"); code != 0 {
		t.Fatalf("ingest exit %d: %s", code, stderr)
	}
	out, stderr, code := env.run(t, "logs", "-n", "200")
	if code != 0 {
		t.Fatalf("logs exit %d: %s", code, stderr)
	}
	requireContains(t, out, "pipeline run finished")
}

func TestDebugFlagRaisesRunLogLevel(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, stderr, code := env.run(t, "--ingest-only", "--dry-run"); code != 0 {
		t.Fatalf("dry run exit %d: %s", code, stderr)
	}
	out, _, _ := env.run(t, "logs", "-n", "200")
	if strings.Contains(out, "configuration loaded") {
		t.Fatalf("debug line logged without --debug:\n%s", out)
	}

	if _, stderr, code := env.run(t, "--ingest-only", "--dry-run", "--debug"); code != 0 {
		t.Fatalf("debug dry run exit %d: %s", code, stderr)
	}
	out, stderr, code := env.run(t, "logs", "-n", "200")
	if code != 0 {
		t.Fatalf("logs exit %d: %s", code, stderr)
	}
	requireContains(t, out, "configuration loaded")
}

func TestMaxFailuresBelowMinusOneIsConfigurationError(t *testing.T) {
	env := setupCLITestEnv(t)
	_, stderr, code := env.run(t, "--ingest-only", "--max-failures=-3")
	if code != 2 {
		t.Fatalf("expected exit 2, got %d (%s)", code, stderr)
	}
	requireContains(t, stderr, "max failures")
}

func TestUnreachableDatabaseFailsPhaseWithSummary(t *testing.T) {
	env := setupCLITestEnv(t)
	writeArtifacts(t, env, "a.txt")

	var (
		mu     sync.Mutex
		titles []string
		bodies []string
	)
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		titles = append(titles, r.Header.Get("Title"))
		bodies = append(bodies, string(body))
		mu.Unlock()
	}))
	t.Cleanup(ntfy.Close)

	env.appendConfig(t, fmt.Sprintf(`[database]
driver = "postgres"
dsn = "postgres://u:p@127.0.0.1:1/db?connect_timeout=2"

[notifications]
ntfy_topic = %q
on_failure = true
`, ntfy.URL))

	out, stderr, code := env.run(t, "--ingest-only", "--json")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d (%s)", code, stderr)
	}
	summary := decodeSummary(t, out)
	if summary.Status != "failed" || len(summary.Phases) != 1 {
		t.Fatalf("expected one failed phase, got %+v", summary)
	}
	ingest := summary.Phases[0]
	if ingest.Phase != "ingest" || ingest.Status != "failed" || ingest.Adapter == "" {
		t.Fatalf("expected ingest adapter failure, got %+v", ingest)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(titles) != 2 {
		t.Fatalf("expected summary and error notifications, got %v", titles)
	}
	requireContains(t, strings.Join(titles, "|"), "driveingest - Error")
	requireContains(t, strings.Join(bodies, "|"), "Error during ingest phase")
}
