package resolver

import (
	"regexp"
	"strings"
)

// urlToken matches absolute http(s) URLs embedded in free text. It is
// deliberately generic: scheme, host and path, nothing platform
// specific.
var urlToken = regexp.MustCompile(`https?://[^\s<>"'\x60\\^{}|]+`)

// trailing punctuation that belongs to the sentence, not the URL
const trailingJunk = `.,;:!?)]}>'"`

// ExtractURLs returns the absolute URL candidates found in a message,
// in order of first appearance, without duplicates.
func ExtractURLs(text string) []string {
	raw := urlToken.FindAllString(text, -1)
	if raw == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(raw))
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		u = strings.TrimRight(u, trailingJunk)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}
