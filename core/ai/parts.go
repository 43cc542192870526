package ai

import (
	"encoding/json"
	"fmt"
)

// PartKind discriminates the payload carried by a [Part]. Message content is
// a closed sum: code that consumes parts switches on the kind and reads the
// matching payload field, and must ignore kinds it does not recognise.
type PartKind string

const (
	// PartText is a plain UTF-8 text fragment.
	PartText PartKind = "text"
	// PartImage is an image referenced by URL or carried as raw bytes.
	PartImage PartKind = "image"
	// PartFile is a provider-native file reference (URI plus MIME type).
	PartFile PartKind = "file"
	// PartToolCall is a model-initiated tool invocation.
	PartToolCall PartKind = "tool_call"
	// PartToolResult is the outcome of executing an earlier tool call.
	PartToolResult PartKind = "tool_result"
	// PartReasoning is chain-of-thought text surfaced by reasoning models.
	PartReasoning PartKind = "reasoning"
	// PartSource is a citation emitted by search-augmented providers.
	PartSource PartKind = "source"
)

// Part is a single element of a structured message payload. Exactly one
// payload field is populated, identified by Kind. Order of parts within a
// message is significant and is preserved end-to-end by every adapter.
type Part struct {
	Kind PartKind `json:"kind"`

	Text       string          `json:"text,omitempty"`        // PartText
	Image      *ImageData      `json:"image,omitempty"`       // PartImage
	File       *FileData       `json:"file,omitempty"`        // PartFile
	ToolCall   *ToolCallData   `json:"tool_call,omitempty"`   // PartToolCall
	ToolResult *ToolResultData `json:"tool_result,omitempty"` // PartToolResult
	Reasoning  *ReasoningData  `json:"reasoning,omitempty"`   // PartReasoning
	Source     *SourceData     `json:"source,omitempty"`      // PartSource
}

// ImageData holds image content as a URL (which may be a data URL), raw
// bytes plus MIME type, or both. Adapters that need one form convert from
// the other: raw bytes become data URLs for OpenAI-compatible services and
// base64 source blocks for Anthropic.
type ImageData struct {
	URL       string `json:"url,omitempty"`
	Data      []byte `json:"data,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// FileData references a provider-hosted file by URI. Google's file API is
// the archetypal consumer; adapters without native file support reject it.
type FileData struct {
	URI       string `json:"uri"`
	MediaType string `json:"media_type,omitempty"`
}

// ToolCallData is a model-initiated tool invocation. Arguments is the raw
// JSON argument object exactly as the provider produced it; IDs are unique
// within a single assistant turn.
type ToolCallData struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ArgumentsMap decodes the raw JSON arguments into a map. An empty or
// absent argument payload decodes to an empty map rather than an error so
// tools with no parameters remain callable.
func (tc *ToolCallData) ArgumentsMap() (map[string]any, error) {
	if len(tc.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(tc.Arguments, &m); err != nil {
		return nil, fmt.Errorf("tool call %q: decoding arguments: %w", tc.ID, err)
	}
	return m, nil
}

// ToolResultData carries the outcome of a tool call back to the model.
// ToolCallID must refer to a tool call that appeared earlier in the same
// conversation. Content is the stringified result; IsError marks failures
// so providers that distinguish them on the wire can do so.
type ToolResultData struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// ReasoningData is reasoning/thinking content plus optional provider
// metadata (e.g. Anthropic thinking signatures) keyed by provider id.
type ReasoningData struct {
	Text     string                    `json:"text"`
	Metadata map[string]map[string]any `json:"metadata,omitempty"`
}

// SourceData is a citation from a search-augmented provider such as
// Perplexity or xAI live search.
type SourceData struct {
	ID    string `json:"id,omitempty"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Text returns a text part.
func Text(s string) Part {
	return Part{Kind: PartText, Text: s}
}

// ImageURL returns an image part referencing an image by URL or data URL.
func ImageURL(url string) Part {
	return Part{Kind: PartImage, Image: &ImageData{URL: url}}
}

// ImageBytes returns an image part carrying raw bytes and their MIME type.
func ImageBytes(data []byte, mediaType string) Part {
	return Part{Kind: PartImage, Image: &ImageData{Data: data, MediaType: mediaType}}
}

// FileRef returns a file part referencing a provider-hosted file.
func FileRef(uri, mediaType string) Part {
	return Part{Kind: PartFile, File: &FileData{URI: uri, MediaType: mediaType}}
}

// ToolCall returns a tool-call part. arguments must be a JSON object
// encoding; pass nil for tools invoked without arguments.
func ToolCall(id, name string, arguments json.RawMessage) Part {
	return Part{Kind: PartToolCall, ToolCall: &ToolCallData{ID: id, Name: name, Arguments: arguments}}
}

// ToolResult returns a tool-result part for the given call id. Non-string
// results are serialised to JSON; values that cannot be serialised are
// rendered with fmt so a result is always produced.
func ToolResult(toolCallID string, result any, isError bool) Part {
	var content string
	switch v := result.(type) {
	case string:
		content = v
	case []byte:
		content = string(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			content = fmt.Sprintf("%v", v)
		} else {
			content = string(encoded)
		}
	}
	return Part{Kind: PartToolResult, ToolResult: &ToolResultData{ToolCallID: toolCallID, Content: content, IsError: isError}}
}

// Reasoning returns a reasoning part with no provider metadata.
func Reasoning(text string) Part {
	return Part{Kind: PartReasoning, Reasoning: &ReasoningData{Text: text}}
}

// Source returns a citation part.
func Source(url, title string) Part {
	return Part{Kind: PartSource, Source: &SourceData{URL: url, Title: title}}
}
