package resolver

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/link-resolve-go/internal/domain"
)

type binding struct {
	fragment string
	pattern  *regexp.Regexp
	platform domain.Platform
	handle   HandlerFunc
	order    int
}

// Registry holds the (fragment, pattern, handler) bindings of all
// registered parsers. It is built once at startup and read-only during
// dispatch, so lookups take no lock.
type Registry struct {
	bindings []binding
	logger   *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

// Register binds a (fragment, pattern) pair to a handler. Registering
// an identical pair again replaces the earlier binding and returns
// false so callers and tests can detect the duplicate.
func (r *Registry) Register(fragment string, pattern *regexp.Regexp, platform domain.Platform, handle HandlerFunc) bool {
	for i, b := range r.bindings {
		if b.fragment == fragment && b.pattern.String() == pattern.String() {
			r.logger.Warn("Duplicate pattern registration, last one wins",
				zap.String("fragment", fragment),
				zap.String("pattern", pattern.String()),
				zap.String("platform", platform.Name))
			r.bindings[i].platform = platform
			r.bindings[i].handle = handle
			return false
		}
	}

	r.bindings = append(r.bindings, binding{
		fragment: fragment,
		pattern:  pattern,
		platform: platform,
		handle:   handle,
		order:    len(r.bindings),
	})
	r.sortBindings()
	return true
}

// AddParser registers all rules of a parser
func (r *Registry) AddParser(p Parser) {
	for _, rule := range p.Rules() {
		r.Register(rule.Fragment, rule.Pattern, p.Platform(), rule.Handle)
	}
}

// Len returns the number of registered bindings
func (r *Registry) Len() int {
	return len(r.bindings)
}

// Platforms returns the distinct registered platforms
func (r *Registry) Platforms() []domain.Platform {
	seen := make(map[string]struct{})
	var platforms []domain.Platform
	for _, b := range r.bindings {
		if _, ok := seen[b.platform.Name]; ok {
			continue
		}
		seen[b.platform.Name] = struct{}{}
		platforms = append(platforms, b.platform)
	}
	return platforms
}

// Match looks a candidate URL up against every binding. A candidate
// matches when its host contains the fragment and the full URL matches
// the pattern. More specific patterns (longer literal prefix) win;
// ties fall back to registration order.
func (r *Registry) Match(rawURL string) (*Match, bool) {
	host := hostOf(rawURL)
	for i := range r.bindings {
		b := &r.bindings[i]
		if !strings.Contains(host, b.fragment) {
			continue
		}
		groups := b.pattern.FindStringSubmatch(rawURL)
		if groups == nil {
			continue
		}

		named := make(map[string]string)
		for gi, name := range b.pattern.SubexpNames() {
			if name != "" && gi < len(groups) {
				named[name] = groups[gi]
			}
		}
		return &Match{
			URL:      rawURL,
			Groups:   groups,
			Named:    named,
			Platform: b.platform,
			handle:   b.handle,
		}, true
	}
	return nil, false
}

// sortBindings orders bindings by literal prefix length descending,
// breaking ties by registration order. Sorting happens at registration
// time so Match never mutates shared state.
func (r *Registry) sortBindings() {
	sort.SliceStable(r.bindings, func(i, j int) bool {
		pi, _ := r.bindings[i].pattern.LiteralPrefix()
		pj, _ := r.bindings[j].pattern.LiteralPrefix()
		if len(pi) != len(pj) {
			return len(pi) > len(pj)
		}
		return r.bindings[i].order < r.bindings[j].order
	})
}

// hostOf extracts the host of a URL, falling back to the raw string
// when it does not parse
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
