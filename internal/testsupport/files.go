package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) {
	t.Helper()
	writeMode(t, path, []byte(content), 0o644)
}

// WriteExecutable writes a /bin/sh script with the given body.
func WriteExecutable(t testing.TB, path, body string) {
	t.Helper()
	writeMode(t, path, []byte("#!/bin/sh\n"+body+"\n"), 0o755)
}

func writeMode(t testing.TB, path string, data []byte, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
