package repometa

import (
	"context"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianshen/repowiki/internal/integrations"
	"github.com/julianshen/repowiki/internal/wiki"
)

const bitbucketAPI = "https://api.bitbucket.org/2.0"

// maxBitbucketPages bounds the src listing walk.
const maxBitbucketPages = 50

type bitbucketSource struct {
	baseURL string
	fetcher *integrations.HTTPFetcher
	logger  *log.Logger
}

func newBitbucketSource(baseURL string, timeout time.Duration, logger *log.Logger) *bitbucketSource {
	if baseURL == "" {
		baseURL = bitbucketAPI
	}
	return &bitbucketSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: integrations.NewHTTPFetcher(timeout),
		logger:  logger,
	}
}

type bitbucketRepo struct {
	MainBranch struct {
		Name string `json:"name"`
	} `json:"mainbranch"`
}

type bitbucketSrcPage struct {
	Values []struct {
		Type string `json:"type"`
		Path string `json:"path"`
	} `json:"values"`
	Next string `json:"next"`
}

func (s *bitbucketSource) Fetch(ctx context.Context, repo wiki.RepoIdentity, token string) (*Metadata, error) {
	f := s.fetcher
	if token != "" {
		f = f.WithHeader("Authorization", "Bearer "+token)
	}
	repoURL := s.baseURL + "/repositories/" + url.PathEscape(repo.Owner) + "/" + url.PathEscape(repo.Repo)

	var info bitbucketRepo
	if err := f.FetchJSON(ctx, repoURL, &info); err != nil {
		s.logger.Printf("WARNING: fetching Bitbucket repository %s: %v", repo, err)
		return nil, &FetchError{Host: "Bitbucket", Detail: bitbucketDetail(err), Err: err}
	}
	branch := info.MainBranch.Name
	if branch == "" {
		branch = fallbackBranches[0]
	}
	srcURL := repoURL + "/src/" + url.PathEscape(branch) + "/"

	md := &Metadata{Repo: repo, Branch: branch}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tree, err := s.fetchTree(gctx, f, srcURL+"?recursive=true&pagelen=100")
		if err != nil {
			return err
		}
		md.FileTree = tree
		return nil
	})
	g.Go(func() error {
		readme, err := f.Fetch(gctx, srcURL+"README.md")
		if err != nil {
			s.logger.Printf("WARNING: could not fetch Bitbucket README.md, continuing with empty README: %v", err)
			return nil
		}
		md.Readme = readme
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return md, nil
}

func (s *bitbucketSource) fetchTree(ctx context.Context, f *integrations.HTTPFetcher, next string) (string, error) {
	var paths []string
	for page := 0; next != "" && page < maxBitbucketPages; page++ {
		var p bitbucketSrcPage
		if err := f.FetchJSON(ctx, next, &p); err != nil {
			s.logger.Printf("WARNING: fetching Bitbucket file listing: %v", err)
			return "", &FetchError{Host: "Bitbucket", Detail: bitbucketDetail(err), Err: err}
		}
		for _, v := range p.Values {
			if v.Type == "commit_file" {
				paths = append(paths, v.Path)
			}
		}
		next = p.Next
	}
	if len(paths) == 0 {
		return "", &FetchError{Host: "Bitbucket"}
	}
	return strings.Join(paths, "\n"), nil
}

func bitbucketDetail(err error) string {
	var se *integrations.HTTPStatusError
	if errors.As(err, &se) {
		return statusDetail(se.StatusCode, strings.TrimSpace(se.Body))
	}
	return ""
}
