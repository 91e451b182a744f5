package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStub(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), mode); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestLocateAll(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	writeStub(t, present, 0o755)
	results := LocateAll(
		Binary{Name: "Present", Command: present},
		Binary{Name: "Missing", Command: "clearly-not-present-binary"},
		Binary{Name: "Blank", Command: "  "},
		Binary{Name: "Extra", Command: "another-missing-binary", Optional: true},
	)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if !results[0].Found || results[0].Path != present || results[0].Problem != "" {
		t.Fatalf("expected present binary to resolve, got %#v", results[0])
	}
	if results[1].Found || results[1].Usable() || results[1].Problem == "" {
		t.Fatalf("expected missing binary with problem, got %#v", results[1])
	}
	if results[1].Path != "clearly-not-present-binary" {
		t.Fatalf("unexpected path recorded: %s", results[1].Path)
	}
	if results[2].Problem != "command not configured" {
		t.Fatalf("unexpected problem for blank command: %q", results[2].Problem)
	}
	if !results[3].Usable() || !strings.HasSuffix(results[3].Summary(), "(optional)") {
		t.Fatalf("expected optional binary to stay usable, got %#v", results[3])
	}
}

func TestResolveFFmpegConfiguredPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ffmpeg-custom")
	writeStub(t, path, 0o755)
	t.Setenv("PATH", "")

	status := ResolveFFmpeg(path)
	if !status.Found {
		t.Fatalf("expected configured ffmpeg to be available, got %q", status.Problem)
	}
	if status.Path != path {
		t.Fatalf("expected %q, got %q", path, status.Path)
	}
}

func TestResolveFFmpegConfiguredNotExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ffmpeg-custom")
	writeStub(t, path, 0o644)

	status := ResolveFFmpeg(path)
	if status.Found {
		t.Fatal("expected non-executable ffmpeg to be rejected")
	}
	if status.Problem == "" {
		t.Fatal("expected detail for non-executable ffmpeg")
	}
}

func TestResolveFFmpegPathFallback(t *testing.T) {
	binDir := t.TempDir()
	ffmpegPath := filepath.Join(binDir, "ffmpeg")
	writeStub(t, ffmpegPath, 0o755)
	t.Setenv("PATH", binDir)

	status := ResolveFFmpeg("")
	if !status.Found {
		t.Fatalf("expected PATH ffmpeg to be available, got %q", status.Problem)
	}
	if status.Path != ffmpegPath {
		t.Fatalf("expected %q, got %q", ffmpegPath, status.Path)
	}
}

func TestResolveFFmpegNotFound(t *testing.T) {
	t.Setenv("PATH", "")
	status := ResolveFFmpeg("")
	if status.Found {
		t.Fatal("expected ffmpeg resolution to fail")
	}
	if status.Problem == "" {
		t.Fatal("expected detail message when ffmpeg is unavailable")
	}
}
