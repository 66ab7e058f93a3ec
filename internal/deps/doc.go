// Package deps locates and reports the external binaries autosub shells out
// to, chiefly ffmpeg and the Python interpreter that hosts the recognizer.
package deps
