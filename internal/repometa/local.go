package repometa

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/julianshen/repowiki/internal/integrations"
	"github.com/julianshen/repowiki/internal/wiki"
)

// skipDirs contains directory names that are left out of a walked tree.
var skipDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	".git":         true,
	"build":        true,
	"dist":         true,
	"__pycache__":  true,
	".venv":        true,
}

var readmeNames = []string{"README.md", "readme.md", "README", "README.rst", "README.txt"}

type localSource struct {
	logger *log.Logger
}

func newLocalSource(logger *log.Logger) *localSource {
	return &localSource{logger: logger}
}

// Fetch lists files with git ls-files when dir is a git checkout, and
// walks the directory otherwise.
func (s *localSource) Fetch(ctx context.Context, repo wiki.RepoIdentity, _ string) (*Metadata, error) {
	dir := repo.LocalPath
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &FetchError{Detail: fmt.Sprintf("local path %s is not a directory", dir), Err: err}
	}

	git := integrations.NewGitRunner(dir)
	md := &Metadata{Repo: repo}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		paths, err := git.LsFiles(gctx)
		if err != nil || len(paths) == 0 {
			paths, err = walkFiles(dir, s.logger)
			if err != nil {
				return &FetchError{Detail: err.Error(), Err: err}
			}
		}
		if len(paths) == 0 {
			return &FetchError{}
		}
		md.FileTree = strings.Join(paths, "\n")
		return nil
	})
	g.Go(func() error {
		md.Readme = readLocalReadme(dir)
		return nil
	})
	g.Go(func() error {
		if head, err := git.Head(gctx); err == nil {
			md.Revision = head.Hash
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return md, nil
}

// walkFiles lists all files under dir, skipping directories in skipDirs.
func walkFiles(dir string, logger *log.Logger) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Printf("repometa: skipping path %q: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if path != dir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	return paths, err
}

func readLocalReadme(dir string) string {
	for _, name := range readmeNames {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return string(data)
		}
	}
	return ""
}
