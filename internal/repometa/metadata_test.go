package repometa

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/repowiki/internal/wiki"
)

type countingSource struct {
	mu    sync.Mutex
	calls int
	md    *Metadata
	err   error
}

func (c *countingSource) Fetch(_ context.Context, repo wiki.RepoIdentity, _ string) (*Metadata, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	md := *c.md
	md.Repo = repo
	return &md, nil
}

func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.Logger = log.New(io.Discard, "", 0)
	return cfg
}

var widgets = wiki.RepoIdentity{Owner: "acme", Repo: "widgets", Type: wiki.RepoGitHub}

func TestFetcherCachesResults(t *testing.T) {
	src := &countingSource{md: &Metadata{FileTree: "README.md"}}
	f := NewFetcher(quietConfig())
	f.sources[wiki.RepoGitHub] = src

	for i := 0; i < 3; i++ {
		md, err := f.Fetch(context.Background(), widgets, "")
		require.NoError(t, err)
		assert.Equal(t, "README.md", md.FileTree)
	}
	assert.Equal(t, 1, src.calls)

	other := widgets
	other.Repo = "gadgets"
	_, err := f.Fetch(context.Background(), other, "")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestFetcherCacheExpires(t *testing.T) {
	src := &countingSource{md: &Metadata{FileTree: "README.md"}}
	cfg := quietConfig()
	cfg.CacheTTL = 10 * time.Millisecond
	f := NewFetcher(cfg)
	f.sources[wiki.RepoGitHub] = src

	_, err := f.Fetch(context.Background(), widgets, "")
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	_, err = f.Fetch(context.Background(), widgets, "")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestFetcherDoesNotCacheErrors(t *testing.T) {
	src := &countingSource{err: errors.New("boom")}
	f := NewFetcher(quietConfig())
	f.sources[wiki.RepoGitHub] = src

	_, err := f.Fetch(context.Background(), widgets, "")
	require.Error(t, err)
	_, err = f.Fetch(context.Background(), widgets, "")
	require.Error(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestFetcherCacheDisabled(t *testing.T) {
	src := &countingSource{md: &Metadata{}}
	cfg := quietConfig()
	cfg.CacheSize = 0
	f := NewFetcher(cfg)
	f.sources[wiki.RepoGitHub] = src

	for i := 0; i < 2; i++ {
		_, err := f.Fetch(context.Background(), widgets, "")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, src.calls)
}

func TestFetcherRejectsIncompleteIdentity(t *testing.T) {
	f := NewFetcher(quietConfig())
	_, err := f.Fetch(context.Background(), wiki.RepoIdentity{Owner: "acme", Type: wiki.RepoGitHub}, "")
	var ve *wiki.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestFetchErrorMessages(t *testing.T) {
	assert.Equal(t,
		"Could not fetch repository structure. Repository might not exist, be empty or private.",
		(&FetchError{Host: "GitHub"}).Error())
	assert.Equal(t,
		"Could not fetch repository structure. API Error: Status: 404, Response: Not Found",
		(&FetchError{Host: "GitHub", Detail: statusDetail(404, "Not Found")}).Error())
	assert.Equal(t,
		"Could not fetch repository structure. GitLab API Error: Status: 403, Response: denied",
		(&FetchError{Host: "GitLab", Detail: statusDetail(403, "denied")}).Error())
}
