package forge

import (
	"net/url"
	"strings"
)

// Correction reports what CorrectWebURL did with its input.
type Correction struct {
	Corrected bool
	// Ambiguous marks three-or-more scheme occurrences. The observed
	// malformation only ever duplicates the prefix once, so anything beyond
	// that is flagged for the caller to log instead of guessed at.
	Ambiguous bool
}

// CorrectWebURL repairs the malformed URL GitLab has been observed to return,
// where the host+namespace prefix is duplicated ahead of the real URL
// (e.g. "https://host/ahttps://host/a/b/-/merge_requests/3"). Detection works
// on the parsed structure: if the scheme token appears exactly twice and the
// leading segment shares the second occurrence's host, the corrected URL is
// the substring starting at the second occurrence.
func CorrectWebURL(raw string) (string, Correction) {
	scheme := schemeToken(raw)
	if scheme == "" {
		return raw, Correction{}
	}
	count := strings.Count(raw, scheme)
	if count <= 1 {
		return raw, Correction{}
	}
	if count >= 3 {
		return raw, Correction{Ambiguous: true}
	}

	second := strings.Index(raw[len(scheme):], scheme) + len(scheme)
	prefix := strings.TrimSpace(raw[:second])
	candidate := raw[second:]

	prefixURL, err := url.Parse(prefix)
	if err != nil {
		return raw, Correction{}
	}
	candidateURL, err := url.Parse(candidate)
	if err != nil {
		return raw, Correction{}
	}
	if candidateURL.Host == "" || candidateURL.Host != prefixURL.Host {
		return raw, Correction{}
	}
	return candidate, Correction{Corrected: true}
}

func schemeToken(raw string) string {
	idx := strings.Index(raw, "://")
	if idx <= 0 {
		return ""
	}
	return raw[:idx+len("://")]
}
