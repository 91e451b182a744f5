// Package drive implements the download phase against Google Drive.
//
// Client is the narrow slice of the Drive v3 API the downloader needs, so
// tests substitute an in-memory fake. NewClient builds the real client from
// the OAuth client secret and stored token; Authorize runs the one-time
// consent flow that produces that token.
package drive
