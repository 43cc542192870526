package ai

import (
	"fmt"
)

// Role identifies the author of a [Message]; compatible with string.
type Role string

const (
	RoleSystem    Role = "system"    // System instructions/configuration
	RoleUser      Role = "user"      // End-user message
	RoleAssistant Role = "assistant" // Model response
	RoleTool      Role = "tool"      // Tool/function output
)

// Message is a single turn in a conversation. Content is an ordered sequence
// of parts; order is significant and preserved end-to-end by every adapter.
// Use the SystemMessage/UserMessage/AssistantMessage/ToolMessage constructors
// for the common plain-text cases.
type Message struct {
	Role    Role   `json:"role"`
	Content []Part `json:"content"`
}

// SystemMessage returns a system message carrying plain text instructions.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []Part{Text(text)}}
}

// UserMessage returns a user message from the given parts. Plain strings can
// be wrapped with [Text].
func UserMessage(parts ...Part) Message {
	return Message{Role: RoleUser, Content: parts}
}

// UserText returns a user message carrying a single text part.
func UserText(text string) Message {
	return UserMessage(Text(text))
}

// AssistantMessage returns an assistant message from the given parts.
func AssistantMessage(parts ...Part) Message {
	return Message{Role: RoleAssistant, Content: parts}
}

// ToolMessage returns a tool message carrying a single tool-result part for
// the given call id.
func ToolMessage(toolCallID string, result any, isError bool) Message {
	return Message{Role: RoleTool, Content: []Part{ToolResult(toolCallID, result, isError)}}
}

// Text returns the concatenation of all top-level text parts of the message.
func (m Message) Text() string {
	var out string
	for _, part := range m.Content {
		if part.Kind == PartText {
			out += part.Text
		}
	}
	return out
}

// ValidateMessages checks the conversation-level invariants every adapter
// relies on before building a wire request:
//
//   - the message list is non-empty
//   - a system message, if present, is first and occurs at most once
//   - every tool_result part refers to a tool-call id introduced by an
//     earlier assistant message
//
// Violations are configuration errors: they are raised before any network
// call is made.
func ValidateMessages(messages []Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: messages list is empty", ErrInvalidMessages)
	}

	knownToolCallIDs := map[string]bool{}

	for i, msg := range messages {
		if msg.Role == RoleSystem && i != 0 {
			return fmt.Errorf("%w: system message at index %d (must be first)", ErrInvalidMessages, i)
		}

		for _, part := range msg.Content {
			switch part.Kind {
			case PartToolCall:
				if part.ToolCall != nil {
					knownToolCallIDs[part.ToolCall.ID] = true
				}
			case PartToolResult:
				if part.ToolResult != nil && !knownToolCallIDs[part.ToolResult.ToolCallID] {
					return fmt.Errorf("%w: tool result refers to unknown tool call id %q", ErrInvalidMessages, part.ToolResult.ToolCallID)
				}
			}
		}
	}

	return nil
}

// SplitSystemPrompt separates a leading system message from the rest of the
// conversation. Adapters whose wire protocol carries the system instruction
// as a top-level field (Anthropic, Google, Bedrock) use this to peel it off
// before converting the remaining messages.
func SplitSystemPrompt(messages []Message) (systemPrompt string, rest []Message) {
	if len(messages) > 0 && messages[0].Role == RoleSystem {
		return messages[0].Text(), messages[1:]
	}
	return "", messages
}
