package openai

import (
	"context"
	"errors"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/julianshen/repowiki/internal/provider"
)

func init() {
	provider.RegisterProvider("openai", func(baseURL, apiKey string, extraHeaders map[string]string) provider.LLMProvider {
		return New(baseURL, apiKey, extraHeaders)
	})
}

// Provider implements the LLMProvider interface for OpenAI-compatible APIs.
type Provider struct {
	client oai.Client
}

// New creates a new OpenAI-compatible provider.
func New(baseURL, apiKey string, extraHeaders map[string]string, opts ...option.RequestOption) *Provider {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	for k, v := range extraHeaders {
		reqOpts = append(reqOpts, option.WithHeader(k, v))
	}
	reqOpts = append(reqOpts, opts...)
	return &Provider{client: oai.NewClient(reqOpts...)}
}

func buildParams(req provider.CompletionRequest) oai.ChatCompletionNewParams {
	var msgs []oai.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, oai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "assistant":
			msgs = append(msgs, oai.ChatCompletionMessageParamOfAssistant(m.Content))
		case "system":
			msgs = append(msgs, oai.SystemMessage(m.Content))
		default:
			msgs = append(msgs, oai.UserMessage(m.Content))
		}
	}

	params := oai.ChatCompletionNewParams{
		Model:    oai.ChatModel(req.Model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = oai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = oai.Float(*req.Temperature)
	}
	return params
}

// Stream sends a streaming chat completion request and returns a channel
// of StreamEvents. The channel is closed after a "stop" or "error" event.
func (p *Provider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamEvent, error) {
	if req.Model == "" {
		return nil, errors.New("openai: model is required")
	}
	stream := p.client.Chat.Completions.NewStreaming(ctx, buildParams(req))

	ch := make(chan provider.StreamEvent)
	go func() {
		defer close(ch)
		defer stream.Close()

		send := func(evt provider.StreamEvent) bool {
			select {
			case ch <- evt:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if text := chunk.Choices[0].Delta.Content; text != "" {
				if !send(provider.StreamEvent{Type: "text_delta", Text: text}) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			send(provider.StreamEvent{Type: "error", Error: fmt.Errorf("openai stream: %w", err)})
			return
		}
		send(provider.StreamEvent{Type: "stop"})
	}()
	return ch, nil
}
