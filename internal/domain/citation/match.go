// Package citation decides whether an answer engine cited a target domain.
// Everything here is pure: no network, no clock, no error path.
package citation

import (
	"strings"

	"github.com/pawa80/search-intelligence-suite/internal/domain"
)

// NormalizeHost reduces a URL or bare hostname to a comparable host:
// scheme, userinfo, port, path, query and fragment are stripped, a leading
// "www." is removed, and the result is lower-cased.
func NormalizeHost(raw string) string {
	host := strings.TrimSpace(raw)

	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.LastIndex(host, "@"); i >= 0 {
		host = host[i+1:]
	}
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}

	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	return strings.TrimSuffix(host, ".")
}

// HostMatches reports whether host is target or a subdomain of target.
// The comparison is boundary-aware: "blog.example.com" matches "example.com",
// "notexample.com" does not. Both arguments must already be normalized.
func HostMatches(host, target string) bool {
	if host == "" || target == "" {
		return false
	}
	if host == target {
		return true
	}
	return strings.HasSuffix(host, "."+target)
}

// Match scans sources in the engine's citation order and returns the rank of
// the first source whose host is the project domain or one of its subdomains.
// Position is 1-based; a zero-value MatchResult (plus RawSources) means the
// domain was not cited.
func Match(sources []string, projectDomain string) domain.MatchResult {
	result := domain.MatchResult{RawSources: sources}

	target := NormalizeHost(projectDomain)
	for i, src := range sources {
		if HostMatches(NormalizeHost(src), target) {
			result.Appears = true
			result.Position = i + 1
			result.CitationURL = src
			return result
		}
	}
	return result
}
