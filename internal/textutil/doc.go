// Package textutil provides text normalization and filename sanitization
// helpers shared by the transcriber, corrector and subtitle writer.
package textutil
