package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"driveingest/internal/config"
	"driveingest/internal/deps"
	"driveingest/internal/drive"
)

// MinFreeBytes is the free space required under the download directory.
const MinFreeBytes uint64 = 1 << 30

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies that the filesystem holding path has at least min bytes free.
func CheckDiskSpace(name, path string, min uint64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := st.Bavail * uint64(st.Bsize)
	detail := fmt.Sprintf("%s free on %s", formatBytes(free), path)
	if free < min {
		return Result{Name: name, Detail: fmt.Sprintf("%s (need %s)", detail, formatBytes(min))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckDriveCredentials verifies the OAuth client file parses and a token is stored.
func CheckDriveCredentials(cfg config.Drive) Result {
	const name = "Drive credentials"
	if _, err := drive.LoadOAuthConfig(cfg.CredentialsFile); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	tok, err := drive.LoadToken(cfg.TokenFile)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if tok.RefreshToken == "" && !tok.Valid() {
		return Result{Name: name, Detail: "token expired without refresh token (run 'driveingest auth')"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.TokenFile}
}

// CheckTranscriptionKey verifies an API key is configured for the OpenAI engine.
func CheckTranscriptionKey(cfg config.Transcription) Result {
	const name = "Transcription API key"
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "missing (set OPENAI_API_KEY)"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckStore pings the ingest store with a short timeout.
func CheckStore(ctx context.Context, store Pinger) Result {
	const name = "Database"
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(checkCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Name: name, Detail: "ping timed out"}
		}
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

// CheckSystemDeps evaluates the external binaries the configured engine shells out to.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	statuses := []deps.Status{deps.ResolveFFmpeg(cfg.FFmpegBinary())}
	if cfg.Transcription.Engine == config.EngineOpenAI && !cfg.Transcription.LanguageRouting {
		statuses[0].Optional = true
	}
	if cfg.Transcription.Engine == config.EngineWhisperX {
		statuses = append(statuses, deps.Locate(deps.Binary{
			Name:    "uvx",
			Command: "uvx",
			Purpose: "Runs WhisperX transcription",
		}))
	}
	return statuses
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
