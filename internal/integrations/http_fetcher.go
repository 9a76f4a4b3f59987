package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseSize = 1 << 20 // 1 MB

// HTTPStatusError reports a response with a 4xx or 5xx status.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Body       string // start of the response body
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("fetch %q: HTTP %d", e.URL, e.StatusCode)
}

// HTTPFetcher retrieves URL contents with a timeout and response size limit.
type HTTPFetcher struct {
	client  *http.Client
	headers map[string]string
}

// NewHTTPFetcher creates a new HTTPFetcher with the given timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		headers: map[string]string{},
	}
}

// WithHeader returns a copy of f that sends the header on every request.
func (f *HTTPFetcher) WithHeader(key, value string) *HTTPFetcher {
	headers := make(map[string]string, len(f.headers)+1)
	for k, v := range f.headers {
		headers[k] = v
	}
	headers[key] = value
	return &HTTPFetcher{client: f.client, headers: headers}
}

// Fetch retrieves the URL content as a string, limited to 1 MB.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	body, err := f.get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchJSON retrieves the URL and decodes the JSON body into v.
func (f *HTTPFetcher) FetchJSON(ctx context.Context, url string, v any) error {
	body, err := f.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %q: %w", url, err)
	}
	return nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &HTTPStatusError{URL: url, StatusCode: resp.StatusCode, Body: string(excerpt)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
