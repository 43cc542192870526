package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMessages_EmptyList(t *testing.T) {
	err := ValidateMessages(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidMessages))
}

func TestValidateMessages_SystemNotFirst(t *testing.T) {
	err := ValidateMessages([]Message{
		UserText("hello"),
		SystemMessage("you are a helpful assistant"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidMessages))
}

func TestValidateMessages_ToolResultUnknownID(t *testing.T) {
	err := ValidateMessages([]Message{
		UserText("call the tool"),
		ToolMessage("call_never_issued", "42", false),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "call_never_issued")
}

func TestValidateMessages_ToolResultKnownID(t *testing.T) {
	err := ValidateMessages([]Message{
		SystemMessage("be terse"),
		UserText("what is 2+2?"),
		AssistantMessage(ToolCall("call_1", "add", []byte(`{"a":2,"b":2}`))),
		ToolMessage("call_1", "4", false),
	})
	assert.NoError(t, err)
}

func TestSplitSystemPrompt(t *testing.T) {
	system, rest := SplitSystemPrompt([]Message{
		SystemMessage("be terse"),
		UserText("hi"),
	})
	assert.Equal(t, "be terse", system)
	require.Len(t, rest, 1)
	assert.Equal(t, RoleUser, rest[0].Role)

	system, rest = SplitSystemPrompt([]Message{UserText("hi")})
	assert.Empty(t, system)
	assert.Len(t, rest, 1)
}

func TestMessageText_JoinsTextParts(t *testing.T) {
	msg := UserMessage(Text("a"), ImageURL("https://example.com/x.png"), Text("b"))
	assert.Equal(t, "ab", msg.Text())
}

func TestUsageAdd(t *testing.T) {
	reasoning := 7
	var usage Usage
	usage.Add(Usage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4})
	usage.Add(Usage{PromptTokens: 2, CompletionTokens: 2, TotalTokens: 4, ReasoningTokens: &reasoning})

	assert.Equal(t, 5, usage.PromptTokens)
	assert.Equal(t, 3, usage.CompletionTokens)
	assert.Equal(t, 8, usage.TotalTokens)
	require.NotNil(t, usage.ReasoningTokens)
	assert.Equal(t, 7, *usage.ReasoningTokens)
	assert.Nil(t, usage.CachedInputTokens)
}
