package repometa

import "fmt"

// FetchError reports a repository whose file tree could not be retrieved.
type FetchError struct {
	Host   string // "GitHub", "GitLab" or "Bitbucket"; empty for local
	Detail string // "Status: <code>, Response: <body>" when known
	Err    error
}

func (e *FetchError) Error() string {
	if e.Detail == "" {
		return "Could not fetch repository structure. Repository might not exist, be empty or private."
	}
	if e.Host == "" {
		return "Could not fetch repository structure. " + e.Detail
	}
	prefix := "API Error"
	if e.Host != "GitHub" {
		prefix = e.Host + " API Error"
	}
	return fmt.Sprintf("Could not fetch repository structure. %s: %s", prefix, e.Detail)
}

func (e *FetchError) Unwrap() error { return e.Err }

func statusDetail(code int, body string) string {
	return fmt.Sprintf("Status: %d, Response: %s", code, body)
}
