// Package process implements the pipeline's process phase: every downloaded
// audio or text file becomes a JSON artifact in the processed directory.
//
// Audio goes through a transcribe.Transcriber, documents through
// extract.Extractor. Sources already in the store are skipped, and an
// artifact written by an earlier run is reused unless processing.reprocess
// is set.
package process
