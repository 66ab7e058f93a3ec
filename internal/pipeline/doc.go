// Package pipeline drives one video through audio extraction,
// transcription, correction and SRT writing.
//
// Driver.Run executes the stages strictly in order and stops at the first
// failure, returning a StageError that names the failing stage. Progress is
// reported to a StatusSink on a single 0-100 scale: extraction owns 0-10,
// transcription 10-50, correction 50-90 and writing 90-100. Correction
// problems never fail a run; the corrector degrades per batch and the Result
// counts how each batch was resolved.
package pipeline
