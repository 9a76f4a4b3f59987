package repometa

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/julianshen/repowiki/internal/wiki"
)

// Metadata is what structure resolution needs to know about a repository.
type Metadata struct {
	Repo     wiki.RepoIdentity
	Branch   string
	FileTree string // newline-separated file paths
	Readme   string // empty when the repository has none
	Revision string // commit hash, when known
}

// Source retrieves metadata from one kind of host.
type Source interface {
	Fetch(ctx context.Context, repo wiki.RepoIdentity, token string) (*Metadata, error)
}

// Config configures a Fetcher. Empty base URLs use the public hosts.
type Config struct {
	GitHubBaseURL    string
	GitLabBaseURL    string
	BitbucketBaseURL string
	Timeout          time.Duration
	CacheSize        int           // 0 disables caching
	CacheTTL         time.Duration // 0 keeps entries until evicted
	Logger           *log.Logger
}

// DefaultConfig returns the Fetcher defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		CacheSize: 32,
		CacheTTL:  10 * time.Minute,
	}
}

// Fetcher dispatches to the Source for a repository's host and caches
// results.
type Fetcher struct {
	sources map[wiki.RepoType]Source
	cache   *expirable.LRU[string, *Metadata]
	logger  *log.Logger
}

// NewFetcher creates a Fetcher with sources for every supported host.
func NewFetcher(cfg Config) *Fetcher {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	f := &Fetcher{
		sources: map[wiki.RepoType]Source{
			wiki.RepoGitHub:    newGitHubSource(cfg.GitHubBaseURL, cfg.Timeout, logger),
			wiki.RepoGitLab:    newGitLabSource(cfg.GitLabBaseURL, cfg.Timeout, logger),
			wiki.RepoBitbucket: newBitbucketSource(cfg.BitbucketBaseURL, cfg.Timeout, logger),
			wiki.RepoLocal:     newLocalSource(logger),
		},
		logger: logger,
	}
	if cfg.CacheSize > 0 {
		f.cache = expirable.NewLRU[string, *Metadata](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return f
}

// Fetch returns the file tree and README of repo.
func (f *Fetcher) Fetch(ctx context.Context, repo wiki.RepoIdentity, token string) (*Metadata, error) {
	if !repo.Complete() {
		return nil, &wiki.ValidationError{Msg: "invalid repository information: owner and repo name are required"}
	}
	src, ok := f.sources[repo.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported repository type %q", repo.Type)
	}

	key := cacheKey(repo)
	if f.cache != nil {
		if md, ok := f.cache.Get(key); ok {
			return md, nil
		}
	}

	f.logger.Printf("repometa: fetching repository structure for %s (%s)", repo, repo.Type)
	md, err := src.Fetch(ctx, repo, token)
	if err != nil {
		return nil, err
	}
	if f.cache != nil && repo.Type != wiki.RepoLocal {
		f.cache.Add(key, md)
	}
	return md, nil
}

func cacheKey(repo wiki.RepoIdentity) string {
	return string(repo.Type) + ":" + repo.URL()
}
