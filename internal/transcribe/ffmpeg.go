package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// buildSliceArgs returns ffmpeg arguments that write the first audio stream
// of source as mono 16 kHz PCM. A positive seconds value limits the output
// to that many seconds from the start.
func buildSliceArgs(source string, seconds int, dest string) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
	}
	if seconds > 0 {
		args = append(args, "-t", fmt.Sprintf("%d", seconds))
	}
	return append(args,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	)
}

// extractWAV writes a WAV rendition of source into workDir and returns its
// path. The file must exist and be non-empty afterwards.
func extractWAV(ctx context.Context, run CommandRunner, ffmpeg, source, workDir, name string, seconds int) (string, error) {
	dest := filepath.Join(workDir, name)
	if err := run(ctx, ffmpeg, buildSliceArgs(source, seconds, dest)...); err != nil {
		return "", fmt.Errorf("ffmpeg extract: %w", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return "", fmt.Errorf("ffmpeg extract: %w", err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("ffmpeg extract: %s is empty", dest)
	}
	return dest, nil
}
