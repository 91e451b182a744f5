package textutil

import (
	"path/filepath"
	"strings"
)

// maxFileNameLength matches the common filesystem limit on a single path element.
const maxFileNameLength = 255

// fallbackFileName is used when nothing survives sanitization.
const fallbackFileName = "unnamed_file"

// fileNameReplacer replaces characters that are unsafe on any major filesystem.
var fileNameReplacer = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	"\"", "_",
	"/", "_",
	"\\", "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// SanitizeFileName makes a remote file name safe to use as a local path
// element. Unsafe characters become underscores, surrounding whitespace and
// dots are trimmed, control characters are dropped, and the result is capped
// at 255 bytes with the extension preserved.
func SanitizeFileName(name string) string {
	name = fileNameReplacer.Replace(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.Trim(name, " \t.")
	if name == "" {
		return fallbackFileName
	}
	if len(name) <= maxFileNameLength {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) >= maxFileNameLength {
		ext = ""
	}
	stem := TruncateBytes(strings.TrimSuffix(name, ext), maxFileNameLength-len(ext))
	return stem + ext
}
