// Package subtitles renders and parses SubRip (SRT) subtitle files.
//
// Write turns an ordered segment list into numbered SRT cues with
// HH:MM:SS,mmm timestamps, and GenerateOutputFilename picks a collision-free,
// timestamped output name next to (or instead of) the source video. Parse and
// ValidateContent read SRT back for round-trip checks and the `validate`
// command.
package subtitles
