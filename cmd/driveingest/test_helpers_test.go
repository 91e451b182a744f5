package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir      string
	configPath   string
	downloadDir  string
	processedDir string
	stateDir     string
}

// envKeys are the variables config normalization consults.
var envKeys = []string{
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "DATABASE_URL", "NTFY_TOPIC",
	"CLIENT_SECRET_FILE", "TOKEN_FILE", "SEARCH_FOLDERS",
	"ALLOWED_AUDIO_EXTENSIONS", "ALLOWED_TEXT_EXTENSIONS", "ALLOWED_OTHER_EXTENSIONS",
	"DELETE_AUDIO_FROM_SRC", "DELETE_TEXT_FROM_SRC", "DELETE_OTHER_FROM_SRC", "DELETE_FROM_SRC",
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	for _, key := range envKeys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	env := &cliTestEnv{
		baseDir:      base,
		configPath:   filepath.Join(base, "config.toml"),
		downloadDir:  filepath.Join(base, "downloads"),
		processedDir: filepath.Join(base, "processed"),
		stateDir:     filepath.Join(base, "state"),
	}
	content := fmt.Sprintf(`[paths]
download_dir = %q
processed_dir = %q
state_dir = %q
log_dir = %q

[drive]
credentials_file = %q
token_file = %q

[transcription]
api_key = "test"

[logging]
level = "error"
`,
		env.downloadDir, env.processedDir, env.stateDir, filepath.Join(base, "logs"),
		filepath.Join(base, "client_secret.json"), filepath.Join(base, "token.json"),
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

// run executes the CLI against the env's config and returns stdout, stderr
// and the exit code.
func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", e.configPath}, args...)
	code := execute(context.Background(), full, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

// appendConfig adds TOML sections to the env's config file.
func (e *cliTestEnv) appendConfig(t *testing.T, content string) {
	t.Helper()
	f, err := os.OpenFile(e.configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString("\n" + content); err != nil {
		t.Fatalf("append config: %v", err)
	}
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
