package integrations

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitCommit represents a git log entry.
type GitCommit struct {
	Hash    string
	Author  string
	Message string
}

// GitRunner executes git commands in a project directory.
type GitRunner struct {
	workDir string
}

// NewGitRunner creates a GitRunner for the given directory.
func NewGitRunner(workDir string) *GitRunner {
	return &GitRunner{workDir: workDir}
}

// LsFiles returns the paths git tracks in the working directory.
func (g *GitRunner) LsFiles(ctx context.Context) ([]string, error) {
	out, err := g.run(ctx, "ls-files")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// Log runs git log and parses the output into structured commits.
// Uses ASCII record separator (\x1e) as delimiter to avoid conflicts
// with pipe characters that may appear in commit subjects or author names.
func (g *GitRunner) Log(ctx context.Context, args ...string) ([]GitCommit, error) {
	const sep = "\x1e"
	cmdArgs := append([]string{"log", "--format=%H%x1e%an%x1e%s"}, args...)
	out, err := g.run(ctx, cmdArgs...)
	if err != nil {
		return nil, err
	}

	var commits []GitCommit
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, sep, 3)
		if len(parts) < 3 {
			continue
		}
		commits = append(commits, GitCommit{
			Hash:    parts[0],
			Author:  parts[1],
			Message: parts[2],
		})
	}

	return commits, nil
}

// Head returns the commit checked out in the working directory.
func (g *GitRunner) Head(ctx context.Context) (GitCommit, error) {
	commits, err := g.Log(ctx, "-1")
	if err != nil {
		return GitCommit{}, err
	}
	if len(commits) == 0 {
		return GitCommit{}, fmt.Errorf("git log: no commits")
	}
	return commits[0], nil
}

func (g *GitRunner) run(ctx context.Context, args ...string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("git: no subcommand provided")
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.workDir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", args[0], string(exitErr.Stderr))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}
