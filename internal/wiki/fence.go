package wiki

import (
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile("(?i)\\A[ \\t]*```([a-z0-9_+-]*)[ \\t]*(?:\\r?\\n)?")
	trailingFence = regexp.MustCompile("(?:\\r?\\n)?[ \\t]*```\\s*\\z")
)

// StripFences removes a leading code fence and a trailing code fence from
// s when both are present. Fences inside the body are kept. When tags are
// given, the leading fence must be untagged or carry one of them
// (case-insensitive); otherwise any tag is accepted.
func StripFences(s string, tags ...string) string {
	m := leadingFence.FindStringSubmatchIndex(s)
	if m == nil {
		return s
	}
	if tag := s[m[2]:m[3]]; tag != "" && len(tags) > 0 && !containsFold(tags, tag) {
		return s
	}
	rest := s[m[1]:]
	end := trailingFence.FindStringIndex(rest)
	if end == nil {
		return s
	}
	return rest[:end[0]]
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
