// Package openaicompat implements the OpenAI-compatible wire protocol
// shared by OpenAI, Groq, DeepSeek, DeepInfra, Cerebras, Perplexity,
// Mistral, Together, xAI, and Cohere v2: the chat completions request and
// response shapes, the SSE streaming chunk decoder, and the embeddings
// endpoint.
//
// Each provider package builds on this one with a [Config] carrying its
// base URL, credentials, and hooks for the places the dialects diverge
// (parameter rewrites, provider extras, response metadata).
package openaicompat
