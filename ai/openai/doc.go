// Package openai implements the ai capability interfaces against
// OpenAI-compatible HTTP APIs (OpenAI, Ollama, LocalAI, vLLM) via langchaingo.
package openai
