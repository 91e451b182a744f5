// Package textutil provides small string helpers shared by the download and
// process phases: filename sanitization and rune-safe truncation.
package textutil
