package extract

import (
	"fmt"
	"os"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// htmlHandler converts HTML, including exported Google Docs, to markdown.
type htmlHandler struct {
	converter *md.Converter
}

func (h *htmlHandler) CanHandle(ext string) bool { return ext == ".html" || ext == ".htm" }

func (h *htmlHandler) Extract(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	source, err := decodeText(raw)
	if err != nil {
		return "", err
	}
	markdown, err := h.converter.ConvertString(source)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return markdown, nil
}
