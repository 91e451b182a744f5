package deps

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FFmpeg describes the binary used to cut audio slices for language probes.
var FFmpeg = Binary{
	Name:    "FFmpeg",
	Command: "ffmpeg",
	Purpose: "Extracts audio slices for transcription",
}

// ResolveFFmpeg locates ffmpeg. A configured absolute path must be an
// executable file; a configured bare name is looked up on PATH before
// falling back to "ffmpeg".
func ResolveFFmpeg(configured string) Status {
	candidate := strings.TrimSpace(configured)
	if candidate == "" || candidate == FFmpeg.Command {
		return Locate(FFmpeg)
	}
	if filepath.IsAbs(candidate) {
		status := Status{Binary: FFmpeg, Path: candidate}
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() || info.Mode().Perm()&0o111 == 0 {
			status.Problem = fmt.Sprintf("configured ffmpeg %q is not executable", candidate)
			return status
		}
		status.Found = true
		return status
	}
	custom := FFmpeg
	custom.Command = candidate
	if status := Locate(custom); status.Found {
		return status
	}
	return Locate(FFmpeg)
}
