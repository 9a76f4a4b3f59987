package integrations

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianshen/repowiki/internal/provider"
	"github.com/julianshen/repowiki/internal/wiki"
)

// ProviderSelector picks the provider and model for one call.
type ProviderSelector interface {
	Select(useOpenRouter, localOllama bool, openRouterModel string) (provider.LLMProvider, string, error)
}

// LLMCompleter sends chat requests straight to an LLM provider and
// collects the streamed text into a single string.
type LLMCompleter struct {
	selector  ProviderSelector
	maxTokens int
}

// NewLLMCompleter creates a new LLMCompleter.
func NewLLMCompleter(selector ProviderSelector, maxTokens int) *LLMCompleter {
	return &LLMCompleter{selector: selector, maxTokens: maxTokens}
}

// fixedSelector always returns the same provider and model.
type fixedSelector struct {
	p     provider.LLMProvider
	model string
}

func (f fixedSelector) Select(bool, bool, string) (provider.LLMProvider, string, error) {
	return f.p, f.model, nil
}

// NewFixedLLMCompleter creates an LLMCompleter that ignores per-request
// routing and always uses p with model.
func NewFixedLLMCompleter(p provider.LLMProvider, model string) *LLMCompleter {
	return NewLLMCompleter(fixedSelector{p: p, model: model}, 0)
}

// Send streams a completion for req and returns the full response text.
func (c *LLMCompleter) Send(ctx context.Context, req wiki.ChatRequest) (string, error) {
	p, model, err := c.selector.Select(req.Credentials.UseOpenRouter, req.Credentials.LocalOllama, req.Credentials.OpenRouterModel)
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}

	msgs := make([]provider.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, provider.Message{Role: m.Role, Content: m.Content})
	}
	creq := provider.CompletionRequest{
		Model:     model,
		Messages:  msgs,
		MaxTokens: c.maxTokens,
	}

	ch, err := p.Stream(ctx, creq)
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}

	var parts []string
	var streamErr error
	for evt := range ch {
		switch evt.Type {
		case "text_delta":
			if streamErr == nil {
				parts = append(parts, evt.Text)
			}
		case "error":
			// Keep draining so the provider goroutine can finish.
			if streamErr == nil {
				streamErr = evt.Error
			}
		}
	}
	if streamErr != nil {
		return "", &wiki.StreamError{Err: streamErr}
	}

	return strings.Join(parts, ""), nil
}
