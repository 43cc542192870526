// Package duckduckgo wraps the free DuckDuckGo Instant Answer API as tools
// a model can call. [NewDuckDuckGoSearchTool] returns a condensed text
// summary; [NewDuckDuckGoSearchAdvancedTool] returns the full structured
// payload. Neither needs an API key.
package duckduckgo
