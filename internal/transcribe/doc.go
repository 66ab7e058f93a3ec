// Package transcribe turns extracted audio into timed text segments.
//
// A Recognizer starts recognition and returns a consume-once Stream of
// segments. FasterWhisper is the production recognizer: it runs an embedded
// Python helper through a configurable interpreter command and reads one JSON
// object per line from its stdout. Transcriber drives a Recognizer with VAD
// filtering enabled, normalizes segment text, and reports progress against
// the audio duration.
package transcribe
