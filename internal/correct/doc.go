// Package correct improves transcribed subtitle text with a language model.
//
// A Corrector is either Configured, backed by a Completer, or Disabled, which
// returns its input untouched. Configured splits segments into fixed-size
// batches and sends each batch as a JSON array alongside a system prompt
// that embeds the glossary. Each batch gets a bounded number of attempts
// with a fixed pause between them. A batch whose attempts are exhausted, or
// whose reply has the wrong number of entries, keeps its original text, so
// correction degrades per batch and never fails the run. Only text is ever
// taken from a reply; timestamps come from the originals.
package correct
