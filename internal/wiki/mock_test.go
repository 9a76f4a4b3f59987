package wiki

import (
	"context"
	"strings"
	"sync"
	"time"
)

// ---------- mocks ----------

// mockCompleter answers by substring match on the prompt.
type mockCompleter struct {
	responses map[string]string // substring match -> response
	errors    map[string]error  // substring match -> error
	delay     time.Duration
	calls     []string // recorded prompts
	mu        sync.Mutex

	active    int
	maxActive int
}

func (m *mockCompleter) Send(ctx context.Context, req ChatRequest) (string, error) {
	prompt := req.Messages[len(req.Messages)-1].Content

	m.mu.Lock()
	m.calls = append(m.calls, prompt)
	m.active++
	if m.active > m.maxActive {
		m.maxActive = m.active
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	for key, err := range m.errors {
		if strings.Contains(prompt, key) {
			return "", err
		}
	}
	for key, resp := range m.responses {
		if strings.Contains(prompt, key) {
			return resp, nil
		}
	}
	return "default response", nil
}

func (m *mockCompleter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockCompleter) peak() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxActive
}

// blockingCompleter holds every call until release is closed.
type blockingCompleter struct {
	started chan string
	release chan struct{}
	resp    string
}

func newBlockingCompleter(resp string) *blockingCompleter {
	return &blockingCompleter{
		started: make(chan string, 16),
		release: make(chan struct{}),
		resp:    resp,
	}
}

func (b *blockingCompleter) Send(ctx context.Context, req ChatRequest) (string, error) {
	b.started <- req.Messages[0].Content
	select {
	case <-b.release:
		return b.resp, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

var testRepo = RepoIdentity{Owner: "acme", Repo: "widgets", Type: RepoGitHub}

const threePageXML = `<wiki_structure>
  <title>Widgets Wiki</title>
  <description>All about widgets</description>
  <pages>
    <page id="page-1">
      <title>Overview</title>
      <description>Top level</description>
      <importance>high</importance>
      <relevant_files>
        <file_path>README.md</file_path>
      </relevant_files>
      <related_pages>
        <related>page-2</related>
      </related_pages>
    </page>
    <page id="page-2">
      <title>Architecture</title>
      <importance>medium</importance>
      <relevant_files>
        <file_path>cmd/main.go</file_path>
        <file_path>internal/core.go</file_path>
      </relevant_files>
    </page>
    <page id="page-3">
      <title>Setup</title>
      <importance>low</importance>
    </page>
  </pages>
</wiki_structure>`
