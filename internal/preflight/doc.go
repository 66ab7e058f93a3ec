// Package preflight provides readiness checks for the external tools,
// services and filesystem paths that autosub depends on.
//
// These checks run in two contexts:
//   - "autosub run" calls RunAll before extraction and refuses to start when
//     a required check fails, so a long transcription is not wasted.
//   - "autosub check" prints every result as a table, adding the slower
//     CheckRecognizer import check and the CheckCorrection health ping.
//
// Correction problems never fail a run: a missing key is reported as a pass
// with a note because the pipeline falls back to the raw transcription.
package preflight
