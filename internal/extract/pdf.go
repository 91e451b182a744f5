package extract

import (
	"strings"

	"github.com/ledongthuc/pdf"
)

type pdfHandler struct{}

func (pdfHandler) CanHandle(ext string) bool { return ext == ".pdf" }

// Extract joins the text of every page that has any. Unreadable documents
// and pages yield empty text rather than an error; the caller stores a
// placeholder for those.
func (pdfHandler) Extract(path string) (text string, err error) {
	defer func() {
		if recover() != nil {
			text, err = "", nil
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", nil
	}
	defer f.Close()

	var parts []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if trimmed := strings.TrimSpace(content); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, "\n"), nil
}
