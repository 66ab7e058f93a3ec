// Package credentials stores the correction API key outside the config file.
//
// Store keeps secrets in a 0600 TOML file under the data directory, keyed by
// service and name, and serializes access with a file lock. ResolveAPIKey
// applies the lookup order used by the CLI: an explicit config value (or its
// GEMINI_API_KEY fallback) first, then the store.
package credentials
