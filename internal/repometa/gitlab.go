package repometa

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/xanzy/go-gitlab"
	"golang.org/x/sync/errgroup"

	"github.com/julianshen/repowiki/internal/wiki"
)

const gitlabTreePageSize = 100

type gitlabSource struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

func newGitLabSource(baseURL string, timeout time.Duration, logger *log.Logger) *gitlabSource {
	return &gitlabSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (s *gitlabSource) newClient(token string) (*gitlab.Client, error) {
	opts := []gitlab.ClientOptionFunc{gitlab.WithHTTPClient(s.client)}
	if s.baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(s.baseURL))
	}
	c, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GitLab client: %w", err)
	}
	return c, nil
}

func (s *gitlabSource) Fetch(ctx context.Context, repo wiki.RepoIdentity, token string) (*Metadata, error) {
	client, err := s.newClient(token)
	if err != nil {
		return nil, err
	}
	project := repo.Owner + "/" + repo.Repo

	p, _, err := client.Projects.GetProject(project, nil, gitlab.WithContext(ctx))
	if err != nil {
		s.logger.Printf("WARNING: fetching GitLab project %s: %v", project, err)
		return nil, &FetchError{Host: "GitLab", Detail: gitlabDetail(err), Err: err}
	}
	branch := p.DefaultBranch
	if branch == "" {
		branch = fallbackBranches[0]
	}

	md := &Metadata{Repo: repo, Branch: branch}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tree, err := s.fetchTree(gctx, client, project, branch)
		if err != nil {
			return err
		}
		md.FileTree = tree
		return nil
	})
	g.Go(func() error {
		md.Readme = s.fetchReadme(gctx, client, project)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return md, nil
}

func (s *gitlabSource) fetchTree(ctx context.Context, client *gitlab.Client, project, branch string) (string, error) {
	opt := &gitlab.ListTreeOptions{
		ListOptions: gitlab.ListOptions{PerPage: gitlabTreePageSize, Page: 1},
		Ref:         gitlab.Ptr(branch),
		Recursive:   gitlab.Ptr(true),
	}
	var paths []string
	for {
		nodes, resp, err := client.Repositories.ListTree(project, opt, gitlab.WithContext(ctx))
		if err != nil {
			s.logger.Printf("WARNING: fetching GitLab tree for %s: %v", project, err)
			return "", &FetchError{Host: "GitLab", Detail: gitlabDetail(err), Err: err}
		}
		for _, n := range nodes {
			if n.Type == "blob" {
				paths = append(paths, n.Path)
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	if len(paths) == 0 {
		return "", &FetchError{Host: "GitLab"}
	}
	return strings.Join(paths, "\n"), nil
}

// fetchReadme tries README.md on the fallback branches; a missing README
// is not an error.
func (s *gitlabSource) fetchReadme(ctx context.Context, client *gitlab.Client, project string) string {
	for _, branch := range fallbackBranches {
		raw, _, err := client.RepositoryFiles.GetRawFile(project, "README.md",
			&gitlab.GetRawFileOptions{Ref: gitlab.Ptr(branch)}, gitlab.WithContext(ctx))
		if err == nil {
			return string(raw)
		}
		s.logger.Printf("WARNING: could not fetch GitLab README.md for branch %s: %v", branch, err)
	}
	return ""
}

func gitlabDetail(err error) string {
	var glErr *gitlab.ErrorResponse
	if errors.As(err, &glErr) && glErr.Response != nil {
		return statusDetail(glErr.Response.StatusCode, glErr.Message)
	}
	return ""
}
