package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/repowiki/internal/provider"
)

const sseBody = `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4o","choices":[{"index":0,"delta":{"role":"assistant","content":""},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4o","choices":[{"index":0,"delta":{"content":"# Over"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4o","choices":[{"index":0,"delta":{"content":"view"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4o","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}

data: [DONE]

`

func collect(ch <-chan provider.StreamEvent) (string, []provider.StreamEvent) {
	var text string
	var events []provider.StreamEvent
	for evt := range ch {
		events = append(events, evt)
		if evt.Type == "text_delta" {
			text += evt.Text
		}
	}
	return text, events
}

func TestStreamTextResponse(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		assert.Equal(t, "docs", r.Header.Get("X-Team"))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(sseBody))
	}))
	defer server.Close()

	p := New(server.URL, "test-api-key", map[string]string{"X-Team": "docs"})
	var _ provider.LLMProvider = p

	ch, err := p.Stream(context.Background(), provider.CompletionRequest{
		Model:    "gpt-4o",
		System:   "You write documentation.",
		Messages: []provider.Message{provider.NewUserMessage("Describe the repo")},
	})
	require.NoError(t, err)

	text, events := collect(ch)
	assert.Equal(t, "# Overview", text)
	require.NotEmpty(t, events)
	assert.Equal(t, "stop", events[len(events)-1].Type)

	assert.Equal(t, "gpt-4o", got["model"])
	assert.Equal(t, true, got["stream"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestStreamAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	p := New(server.URL, "k", nil, option.WithMaxRetries(0))
	ch, err := p.Stream(context.Background(), provider.CompletionRequest{
		Model:    "nope",
		Messages: []provider.Message{provider.NewUserMessage("hi")},
	})
	require.NoError(t, err)

	text, events := collect(ch)
	assert.Empty(t, text)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Type)
	assert.Error(t, events[0].Error)
}

func TestStreamRequiresModel(t *testing.T) {
	p := New("http://127.0.0.1:1", "k", nil)
	_, err := p.Stream(context.Background(), provider.CompletionRequest{})
	assert.Error(t, err)
}
