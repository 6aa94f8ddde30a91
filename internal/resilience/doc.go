// Package resilience keeps a turn alive when a transcription or language
// model backend misbehaves. Each configured provider gets its own
// [CircuitBreaker]; [LLMFallback] and [STTFallback] walk the chain from
// providers.*_fallbacks in order and skip entries whose breaker is open.
package resilience
