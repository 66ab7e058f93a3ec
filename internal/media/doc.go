// Package media validates input videos and extracts their audio track with
// ffmpeg into a scratch directory for transcription.
package media
