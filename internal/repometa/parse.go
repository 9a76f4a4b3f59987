package repometa

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/julianshen/repowiki/internal/wiki"
)

const formatsHint = "valid formats are owner/repo, https://github.com/owner/repo, " +
	"https://gitlab.com/group/project, https://bitbucket.org/owner/repo, or a local directory path"

var homeDir = os.UserHomeDir

var hostPrefixes = []struct {
	prefix string
	typ    wiki.RepoType
}{
	{"https://github.com/", wiki.RepoGitHub},
	{"https://gitlab.com/", wiki.RepoGitLab},
	{"https://bitbucket.org/", wiki.RepoBitbucket},
}

// ParseRepository turns user input into a repository identity. It accepts
// hosted repository URLs, owner/repo shorthand (GitHub), and local paths.
func ParseRepository(input string) (wiki.RepoIdentity, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return wiki.RepoIdentity{}, invalid("repository is required")
	}

	if isLocalPath(input) {
		return parseLocal(input)
	}

	for _, h := range hostPrefixes {
		if !strings.HasPrefix(input, h.prefix) {
			continue
		}
		parts := splitPath(strings.TrimPrefix(input, h.prefix))
		if h.typ == wiki.RepoGitLab {
			// Nested groups: the project is the last segment.
			parts = trimGitLabSuffix(parts)
			if len(parts) < 2 {
				return wiki.RepoIdentity{}, invalid("invalid GitLab URL: " + input)
			}
			return identity(strings.Join(parts[:len(parts)-1], "/"), parts[len(parts)-1], h.typ)
		}
		if len(parts) < 2 {
			return wiki.RepoIdentity{}, invalid("invalid repository URL: " + input)
		}
		return identity(parts[0], parts[1], h.typ)
	}

	if strings.Contains(input, "://") {
		return wiki.RepoIdentity{}, invalid("unsupported repository host: " + input)
	}
	parts := splitPath(input)
	if len(parts) != 2 {
		return wiki.RepoIdentity{}, invalid("invalid repository format: " + input)
	}
	return identity(parts[0], parts[1], wiki.RepoGitHub)
}

func identity(owner, repo string, typ wiki.RepoType) (wiki.RepoIdentity, error) {
	owner = strings.TrimSpace(owner)
	repo = strings.TrimSuffix(strings.TrimSpace(repo), ".git")
	id := wiki.RepoIdentity{Owner: owner, Repo: repo, Type: typ}
	if !id.Complete() {
		return wiki.RepoIdentity{}, invalid("owner and repo name are required")
	}
	return id, nil
}

func parseLocal(input string) (wiki.RepoIdentity, error) {
	path := input
	if strings.HasPrefix(path, "~") {
		if home, err := homeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return wiki.RepoIdentity{}, invalid("invalid local path: " + input)
	}
	name := filepath.Base(abs)
	if name == string(filepath.Separator) || name == "." {
		return wiki.RepoIdentity{}, invalid("invalid local path: " + input)
	}
	return wiki.RepoIdentity{Owner: "local", Repo: name, Type: wiki.RepoLocal, LocalPath: abs}, nil
}

func isLocalPath(input string) bool {
	if filepath.IsAbs(input) || filepath.VolumeName(input) != "" {
		return true
	}
	return strings.HasPrefix(input, ".") || strings.HasPrefix(input, "~")
}

// splitPath splits on slashes and drops empty segments, query strings and
// fragments.
func splitPath(p string) []string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// trimGitLabSuffix drops web UI paths such as /-/tree/main.
func trimGitLabSuffix(parts []string) []string {
	for i, p := range parts {
		if p == "-" {
			return parts[:i]
		}
	}
	return parts
}

func invalid(msg string) error {
	return &wiki.ValidationError{Msg: msg + " (" + formatsHint + ")"}
}
