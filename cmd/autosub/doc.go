// Package main hosts the autosub CLI entrypoint and command graph.
//
// The Cobra command tree wires the internal packages together: "run" builds
// the extractor, recognizer, corrector and pipeline driver for one video,
// records the outcome in the run history and renders progress; "check",
// "auth", "config" and "history" cover setup and inspection. Configuration
// is resolved lazily once per invocation and shared through commandContext.
//
// Keep this package lean: new behavior belongs in internal packages and is
// only surfaced here through commands or flags.
package main
