package resolver

import (
	"context"
	"regexp"

	"github.com/yourusername/link-resolve-go/internal/domain"
)

// HandlerFunc is the extraction function bound to one URL pattern. It
// owns exactly one network round trip pattern: request the platform,
// parse fields, construct content model objects, return. Media retry
// belongs to the download manager, redirect retry to the dispatcher.
type HandlerFunc func(ctx context.Context, m *Match) (*domain.ParseResult, error)

// Rule associates a domain fragment and URL pattern with a handler
type Rule struct {
	Fragment string
	Pattern  *regexp.Regexp
	Handle   HandlerFunc
}

// Parser is the contract every platform implementation fulfills. A new
// platform is added purely by implementing Parser and registering it
// before the first dispatch.
type Parser interface {
	// Platform returns the immutable platform identity
	Platform() domain.Platform

	// Rules returns the (fragment, pattern, handler) bindings of the
	// platform, in declaration order
	Rules() []Rule
}

// Match is the ephemeral unit created per dispatch and handed to the
// owning handler
type Match struct {
	// URL is the candidate that matched, after any redirect chase
	URL string
	// Groups holds the positional capture groups, Groups[0] being the
	// full match
	Groups []string
	// Named holds the named capture groups
	Named map[string]string
	// Platform is the owning platform identity
	Platform domain.Platform

	handle HandlerFunc
}

// Group returns a positional capture group, empty when out of range
func (m *Match) Group(i int) string {
	if i < 0 || i >= len(m.Groups) {
		return ""
	}
	return m.Groups[i]
}
