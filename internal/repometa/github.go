package repometa

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
	"golang.org/x/sync/errgroup"

	"github.com/julianshen/repowiki/internal/wiki"
)

// fallbackBranches are tried in order when the default branch is unknown.
var fallbackBranches = []string{"main", "master"}

type githubSource struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

func newGitHubSource(baseURL string, timeout time.Duration, logger *log.Logger) *githubSource {
	return &githubSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (s *githubSource) newClient(token string) *github.Client {
	c := github.NewClient(s.client)
	if token != "" {
		c = c.WithAuthToken(token)
	}
	if s.baseURL != "" {
		if u, err := url.Parse(strings.TrimRight(s.baseURL, "/") + "/"); err == nil {
			c.BaseURL = u
		}
	}
	return c
}

func (s *githubSource) Fetch(ctx context.Context, repo wiki.RepoIdentity, token string) (*Metadata, error) {
	client := s.newClient(token)
	md := &Metadata{Repo: repo}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		branch, tree, err := s.fetchTree(gctx, client, repo)
		if err != nil {
			return err
		}
		md.Branch, md.FileTree = branch, tree
		return nil
	})
	g.Go(func() error {
		md.Readme = s.fetchReadme(gctx, client, repo)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return md, nil
}

func (s *githubSource) fetchTree(ctx context.Context, client *github.Client, repo wiki.RepoIdentity) (string, string, error) {
	var detail string
	var lastErr error
	for _, branch := range fallbackBranches {
		tree, _, err := client.Git.GetTree(ctx, repo.Owner, repo.Repo, branch, true)
		if err == nil && tree != nil {
			var paths []string
			for _, e := range tree.Entries {
				if e.GetType() == "blob" {
					paths = append(paths, e.GetPath())
				}
			}
			return branch, strings.Join(paths, "\n"), nil
		}
		lastErr = err
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil {
			detail = statusDetail(ghErr.Response.StatusCode, ghErr.Message)
		}
		s.logger.Printf("WARNING: fetching GitHub tree for %s on branch %s: %v", repo, branch, err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", "", &FetchError{Host: "GitHub", Detail: detail, Err: lastErr}
}

// fetchReadme returns the README text; a missing README is not an error.
func (s *githubSource) fetchReadme(ctx context.Context, client *github.Client, repo wiki.RepoIdentity) string {
	rc, _, err := client.Repositories.GetReadme(ctx, repo.Owner, repo.Repo, nil)
	if err != nil {
		s.logger.Printf("WARNING: could not fetch README for %s, continuing with empty README: %v", repo, err)
		return ""
	}
	content, err := rc.GetContent()
	if err != nil {
		s.logger.Printf("WARNING: decoding README for %s: %v", repo, err)
		return ""
	}
	return content
}
