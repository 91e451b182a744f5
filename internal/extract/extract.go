package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"driveingest/internal/services"
	"driveingest/internal/textutil"
)

// DefaultTitleMaxLength caps titles when no limit is configured.
const DefaultTitleMaxLength = 255

// Result is the text extracted from one document.
type Result struct {
	Title    string
	Text     string
	FileType string
	// Empty is set when the document yielded no text and Text holds the
	// placeholder instead.
	Empty bool
}

// Handler extracts text from one document format.
type Handler interface {
	CanHandle(ext string) bool
	Extract(path string) (string, error)
}

// Extractor dispatches files to format handlers.
type Extractor struct {
	handlers       []Handler
	titleMaxLength int
}

// New constructs an Extractor with the built-in handlers.
func New(titleMaxLength int) *Extractor {
	if titleMaxLength <= 0 {
		titleMaxLength = DefaultTitleMaxLength
	}
	e := &Extractor{titleMaxLength: titleMaxLength}
	e.AddHandler(textHandler{})
	e.AddHandler(docxHandler{})
	e.AddHandler(pdfHandler{})
	e.AddHandler(&htmlHandler{converter: md.NewConverter("", true, nil)})
	e.AddHandler(markdownHandler{})
	return e
}

// AddHandler appends a handler; earlier handlers win.
func (e *Extractor) AddHandler(h Handler) {
	e.handlers = append(e.handlers, h)
}

// Supports reports whether some handler accepts path's extension.
func (e *Extractor) Supports(path string) bool {
	return e.handlerFor(strings.ToLower(filepath.Ext(path))) != nil
}

// Extract reads path and returns its text and title. Unsupported extensions
// fail with services.ErrValidation.
func (e *Extractor) Extract(path string) (Result, error) {
	ext := strings.ToLower(filepath.Ext(path))
	handler := e.handlerFor(ext)
	if handler == nil {
		return Result{}, services.Wrap(services.ErrValidation, "process", "extract",
			fmt.Sprintf("unsupported file type %q", ext), nil)
	}
	if _, err := os.Stat(path); err != nil {
		return Result{}, fmt.Errorf("stat %s: %w", path, err)
	}
	text, err := handler.Extract(path)
	if err != nil {
		return Result{}, fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}
	return e.result(path, ext, text), nil
}

func (e *Extractor) handlerFor(ext string) Handler {
	if ext == "" {
		return nil
	}
	for _, h := range e.handlers {
		if h.CanHandle(ext) {
			return h
		}
	}
	return nil
}

func (e *Extractor) result(path, ext, text string) Result {
	res := Result{
		Text:     text,
		FileType: ext,
		Title:    Title(text, stem(path), e.titleMaxLength),
	}
	if strings.TrimSpace(text) == "" {
		res.Empty = true
		res.Text = Placeholder(filepath.Base(path))
	}
	return res
}

// Title returns the first line of text, trimmed and capped at maxLen runes,
// or fallback when the text is blank.
func Title(text, fallback string, maxLen int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return textutil.Truncate(fallback, maxLen)
	}
	first, _, _ := strings.Cut(trimmed, "\n")
	first = strings.TrimSpace(first)
	if first == "" {
		return textutil.Truncate(fallback, maxLen)
	}
	return textutil.Truncate(first, maxLen)
}

// Placeholder is stored in place of text for documents that yielded none.
func Placeholder(name string) string {
	return fmt.Sprintf("[No text content extracted from %s]", name)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
