package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"

	"github.com/julianshen/repowiki/internal/wiki"
)

const (
	streamPath        = "/chat/completions/stream"
	maxErrorBodySize  = 2048
	streamReadBufSize = 4096
	noErrorDetails    = "No error details available"
)

// StreamClientConfig configures a StreamClient.
type StreamClientConfig struct {
	BaseURL           string
	Timeout           time.Duration // whole-request limit, 0 disables
	RequestsPerSecond float64       // 0 disables limiting
	// OnChunk, if set, receives each decoded piece of the response as it
	// arrives.
	OnChunk func(chunk string)
	Logger  *log.Logger
}

// StreamClient sends one chat request to the streaming generation endpoint
// and returns the fully drained response text.
type StreamClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	onChunk func(string)
	logger  *log.Logger
}

// NewStreamClient creates a StreamClient for the endpoint at cfg.BaseURL.
func NewStreamClient(cfg StreamClientConfig) *StreamClient {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	c := &StreamClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		onChunk: cfg.OnChunk,
		logger:  logger,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// streamRequest is the JSON body accepted by the streaming endpoint.
type streamRequest struct {
	RepoURL         string         `json:"repo_url"`
	Messages        []wiki.Message `json:"messages"`
	GitHubToken     string         `json:"github_token,omitempty"`
	GitLabToken     string         `json:"gitlab_token,omitempty"`
	BitbucketToken  string         `json:"bitbucket_token,omitempty"`
	LocalOllama     bool           `json:"local_ollama"`
	UseOpenRouter   bool           `json:"use_openrouter"`
	OpenRouterModel string         `json:"openrouter_model,omitempty"`
	Language        string         `json:"language"`
}

func newStreamRequest(req wiki.ChatRequest) streamRequest {
	body := streamRequest{
		RepoURL:       req.Repo.URL(),
		Messages:      req.Messages,
		LocalOllama:   req.Credentials.LocalOllama,
		UseOpenRouter: req.Credentials.UseOpenRouter,
		Language:      req.Language,
	}
	if body.Language == "" {
		body.Language = "en"
	}
	switch req.Repo.Type {
	case wiki.RepoGitHub:
		body.GitHubToken = req.Credentials.Token
	case wiki.RepoGitLab:
		body.GitLabToken = req.Credentials.Token
	case wiki.RepoBitbucket:
		body.BitbucketToken = req.Credentials.Token
	}
	if req.Credentials.UseOpenRouter {
		body.OpenRouterModel = req.Credentials.OpenRouterModel
		if body.OpenRouterModel == "" {
			body.OpenRouterModel = "openai/gpt-4o"
		}
	}
	return body
}

// Send posts req and drains the streamed response. A non-success status
// yields *wiki.TransportError; a body that cannot be read yields
// *wiki.StreamError.
func (c *StreamClient) Send(ctx context.Context, req wiki.ChatRequest) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	payload, err := json.Marshal(newStreamRequest(req))
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+streamPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := readErrorBody(resp.Body)
		c.logger.Printf("WARNING: generation endpoint returned %d: %s", resp.StatusCode, detail)
		return "", &wiki.TransportError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       detail,
		}
	}

	return c.drain(ctx, resp.Body)
}

// drain decodes body as UTF-8 in fixed-size reads. The decoder keeps a
// partial multi-byte sequence until the rest of it arrives.
func (c *StreamClient) drain(ctx context.Context, body io.Reader) (string, error) {
	r := transform.NewReader(body, unicode.UTF8.NewDecoder())
	buf := make([]byte, streamReadBufSize)
	var sb strings.Builder
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			sb.WriteString(chunk)
			if c.onChunk != nil {
				c.onChunk(chunk)
			}
		}
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return "", &wiki.StreamError{Err: err}
		}
	}
}

func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return noErrorDetails
	}
	return string(data)
}
