// Package llm provides a chat completions client for OpenAI-compatible
// endpoints. autosub uses it as the subtitle correction capability; the
// defaults point at Gemini's OpenAI-compatible API.
//
// # Configuration
//
// Requires api_key, and optionally model, base_url, referer, title, timeout.
// When no key is available callers should skip correction entirely.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive the raw JSON reply.
// Client.HealthCheck: verify API key and model availability.
// DecodeLLMJSON: decode a reply, tolerating code fences and surrounding prose.
//
// # Errors
//
// Each call is a single request; the corrector owns retries. HTTP 401/403
// failures (and a missing key) match services.ErrConfiguration. HTTP
// 408/429/5xx, network failures, undecodable bodies and empty replies match
// services.ErrTransient.
package llm
