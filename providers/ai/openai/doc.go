// Package openai is the OpenAI provider: chat completions (with the
// reasoning-model parameter rewrite for the o-series and gpt-5),
// embeddings, image generation, speech synthesis, and transcription.
package openai
