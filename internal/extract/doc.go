// Package extract pulls plain text out of the document formats the process
// phase accepts: .txt, .docx, .pdf, .html, and .md.
//
// Each format is a Handler; Extractor picks the first handler that accepts
// the file's extension.
package extract
