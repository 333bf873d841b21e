// Package ai defines the external AI capability interfaces consumed by the
// ingestion and query paths: text embedding, answer generation and audio
// transcription.
//
// Implementations live in subpackages (openai for OpenAI-compatible services,
// mock for deterministic test doubles). The core never depends on a concrete
// provider.
package ai
