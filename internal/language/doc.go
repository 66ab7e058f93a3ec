// Package language normalizes user supplied language codes for the
// recognizer and renders human-readable names for logs.
package language
