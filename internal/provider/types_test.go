package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("hello world")
	assert.Equal(t, "user", msg.Role)
	assert.Equal(t, "hello world", msg.Content)
}

func TestNewAssistantMessage(t *testing.T) {
	msg := NewAssistantMessage("hi")
	assert.Equal(t, "assistant", msg.Role)
	assert.Equal(t, "hi", msg.Content)
}

func TestCompletionRequestJSON(t *testing.T) {
	req := CompletionRequest{
		Model:    "gpt-4o",
		Messages: []Message{NewUserMessage("hi")},
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`, string(data))
}
