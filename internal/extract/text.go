package extract

import (
	"bytes"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

type textHandler struct{}

func (textHandler) CanHandle(ext string) bool { return ext == ".txt" }

func (textHandler) Extract(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return decodeText(raw)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText tries UTF-8, then UTF-8 behind a byte order mark, then the
// single-byte Latin-1 and Windows-1252 charsets. Latin-1 maps every byte, so
// Windows-1252 is only reached if that decoder reports an error.
func decodeText(raw []byte) (string, error) {
	if utf8.Valid(raw) && !bytes.HasPrefix(raw, utf8BOM) {
		return string(raw), nil
	}
	if rest, ok := bytes.CutPrefix(raw, utf8BOM); ok && utf8.Valid(rest) {
		return string(rest), nil
	}
	var lastErr error
	for _, dec := range []*encoding.Decoder{charmap.ISO8859_1.NewDecoder(), charmap.Windows1252.NewDecoder()} {
		out, err := dec.Bytes(raw)
		if err == nil {
			return string(out), nil
		}
		lastErr = err
	}
	return "", lastErr
}

type markdownHandler struct{}

func (markdownHandler) CanHandle(ext string) bool { return ext == ".md" || ext == ".markdown" }

func (markdownHandler) Extract(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return decodeText(raw)
}
