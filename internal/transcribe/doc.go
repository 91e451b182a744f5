// Package transcribe turns audio files into text.
//
// Two engines are available. The OpenAI engine posts the file to the
// transcription endpoint through go-openai and can route the request to a
// language detected from a short ffmpeg probe slice. The WhisperX engine
// extracts a mono 16 kHz WAV with ffmpeg and runs whisperx through uvx.
//
// Both engines return the transcript together with a pipeline.Transcription
// record describing the run, which the ingest phase stores alongside the
// entry.
package transcribe
