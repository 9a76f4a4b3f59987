package wiki

import "strings"

// Importance ranks a page for presentation. It never affects scheduling order.
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// ParseImportance maps a markup value to an Importance. Absent or
// unrecognized values default to medium.
func ParseImportance(s string) Importance {
	switch Importance(strings.ToLower(strings.TrimSpace(s))) {
	case ImportanceHigh:
		return ImportanceHigh
	case ImportanceLow:
		return ImportanceLow
	default:
		return ImportanceMedium
	}
}

// Page is one unit of generated documentation tied to a subset of
// repository files. RelatedPages may name ids that do not exist in the
// structure.
type Page struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	FilePaths    []string   `json:"filePaths"`
	Importance   Importance `json:"importance"`
	RelatedPages []string   `json:"relatedPages"`
	Content      string     `json:"content"`
}

// Structure is the ordered page list plus a title and description for the
// whole documentation set.
type Structure struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Pages       []Page `json:"pages"`
}

// Page returns the page with the given id.
func (s *Structure) Page(id string) (Page, bool) {
	for _, p := range s.Pages {
		if p.ID == id {
			return p, true
		}
	}
	return Page{}, false
}

// RepoType identifies the hosting provider of a repository.
type RepoType string

const (
	RepoGitHub    RepoType = "github"
	RepoGitLab    RepoType = "gitlab"
	RepoBitbucket RepoType = "bitbucket"
	RepoLocal     RepoType = "local"
)

// RepoIdentity names the repository a wiki is generated for.
type RepoIdentity struct {
	Owner string
	Repo  string
	Type  RepoType
	// LocalPath is the directory of a local repository.
	LocalPath string
}

// Complete reports whether both owner and repo are set.
func (r RepoIdentity) Complete() bool {
	return strings.TrimSpace(r.Owner) != "" && strings.TrimSpace(r.Repo) != ""
}

// URL returns the repository URL sent to the generation endpoint.
func (r RepoIdentity) URL() string {
	switch r.Type {
	case RepoLocal:
		if r.LocalPath != "" {
			return r.LocalPath
		}
		return r.Owner + "/" + r.Repo
	case RepoGitLab:
		return "https://gitlab.com/" + r.Owner + "/" + r.Repo
	case RepoBitbucket:
		return "https://bitbucket.org/" + r.Owner + "/" + r.Repo
	default:
		return "https://github.com/" + r.Owner + "/" + r.Repo
	}
}

// FileURL links to path on branch in the repository's web view. Local
// repositories get a plain filesystem path. An empty branch means main.
func (r RepoIdentity) FileURL(branch, path string) string {
	if branch == "" {
		branch = "main"
	}
	path = strings.TrimPrefix(path, "/")
	switch r.Type {
	case RepoLocal:
		return r.URL() + "/" + path
	case RepoGitLab:
		return r.URL() + "/-/blob/" + branch + "/" + path
	case RepoBitbucket:
		return r.URL() + "/src/" + branch + "/" + path
	default:
		return r.URL() + "/blob/" + branch + "/" + path
	}
}

// String returns owner/repo.
func (r RepoIdentity) String() string {
	return r.Owner + "/" + r.Repo
}

// Credentials are passed through verbatim to every outbound call.
type Credentials struct {
	// Token is the access token for the repository's hosting provider.
	Token           string
	LocalOllama     bool
	UseOpenRouter   bool
	OpenRouterModel string
}

// Message is a single chat message sent to the generation endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is one outbound generation call.
type ChatRequest struct {
	Repo        RepoIdentity
	Messages    []Message
	Credentials Credentials
	Language    string
}

// NewUserRequest builds a ChatRequest with a single user message.
func NewUserRequest(repo RepoIdentity, creds Credentials, language, prompt string) ChatRequest {
	return ChatRequest{
		Repo:        repo,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Credentials: creds,
		Language:    language,
	}
}
