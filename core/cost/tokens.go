package cost

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/manifold-ai/manifold/core/ai"
)

// Message framing overhead in the OpenAI chat format: three tokens per
// message plus three priming the reply.
const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	encodingMu    sync.Mutex
)

func encodingFor(model string) (*tiktoken.Tiktoken, error) {
	encodingMu.Lock()
	defer encodingMu.Unlock()

	if cached, ok := encodingCache[model]; ok {
		return cached, nil
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Non-OpenAI models approximate with cl100k_base; vocabularies
		// are close enough for budgeting.
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("cost: loading encoding: %w", err)
		}
	}

	encodingCache[model] = encoding
	return encoding, nil
}

// TokenCounter estimates prompt token counts for one model. Safe for
// concurrent use.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
}

// NewTokenCounter builds a counter for the model, falling back to the
// cl100k_base encoding when the model is unknown to tiktoken.
func NewTokenCounter(model string) (*TokenCounter, error) {
	encoding, err := encodingFor(model)
	if err != nil {
		return nil, err
	}
	return &TokenCounter{encoding: encoding, model: model}, nil
}

// Model returns the model this counter was built for.
func (tc *TokenCounter) Model() string { return tc.model }

// Count returns the token count for raw text.
func (tc *TokenCounter) Count(text string) int {
	return len(tc.encoding.Encode(text, nil, nil))
}

// CountMessages estimates the prompt tokens for a message list, including
// the chat-format framing overhead. Only text parts are counted; images and
// files are billed by providers on their own scales.
func (tc *TokenCounter) CountMessages(messages []ai.Message) int {
	total := 0
	for _, message := range messages {
		total += tokensPerMessage
		total += tc.Count(string(message.Role))
		for _, part := range message.Content {
			switch part.Kind {
			case ai.PartText:
				total += tc.Count(part.Text)
			case ai.PartToolCall:
				if part.ToolCall != nil {
					total += tc.Count(part.ToolCall.Name)
					total += tc.Count(string(part.ToolCall.Arguments))
				}
			case ai.PartToolResult:
				if part.ToolResult != nil {
					total += tc.Count(part.ToolResult.Content)
				}
			}
		}
	}
	return total + tokensPerReply
}

// EstimateTokens is a one-shot convenience around [TokenCounter] for pricing
// a prompt before sending it.
func EstimateTokens(model string, messages []ai.Message) (int, error) {
	counter, err := NewTokenCounter(model)
	if err != nil {
		return 0, err
	}
	return counter.CountMessages(messages), nil
}
