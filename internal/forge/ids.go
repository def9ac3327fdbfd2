package forge

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	pullNumberRegex = regexp.MustCompile(`/pull/(\d+)`)
	mergeIIDRegex   = regexp.MustCompile(`/merge_requests/(\d+)`)
)

// ExtractNumber re-derives the numeric identifier (PR number or MR IID) from
// a request web URL.
func ExtractNumber(webURL string) (int, error) {
	for _, re := range []*regexp.Regexp{pullNumberRegex, mergeIIDRegex} {
		matches := re.FindStringSubmatch(webURL)
		if len(matches) < 2 {
			continue
		}
		number, err := strconv.Atoi(matches[1])
		if err != nil {
			return 0, fmt.Errorf("parse identifier from %s: %w", webURL, err)
		}
		return number, nil
	}
	return 0, fmt.Errorf("no request identifier found in %s", webURL)
}
