package resolver

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/link-resolve-go/internal/domain"
)

func noopHandler(ctx context.Context, m *Match) (*domain.ParseResult, error) {
	return &domain.ParseResult{URL: m.URL}, nil
}

func TestRegistry_MatchCapturesGroups(t *testing.T) {
	registry := NewRegistry(nil)
	pattern := regexp.MustCompile(`example\.com/v/(?P<id>\w+)`)
	ok := registry.Register("example.com", pattern, domain.Platform{Name: "example"}, noopHandler)
	require.True(t, ok)

	m, found := registry.Match("https://video.example.com/v/abc123")
	require.True(t, found)
	assert.Equal(t, "https://video.example.com/v/abc123", m.URL)
	assert.Equal(t, "example", m.Platform.Name)
	assert.Equal(t, "abc123", m.Named["id"])
	assert.Equal(t, "abc123", m.Group(1))
}

func TestRegistry_FragmentGatesHost(t *testing.T) {
	registry := NewRegistry(nil)
	pattern := regexp.MustCompile(`/v/(?P<id>\w+)`)
	registry.Register("example.com", pattern, domain.Platform{Name: "example"}, noopHandler)

	// Pattern would match, but the host carries no fragment
	_, found := registry.Match("https://other.org/v/abc123")
	assert.False(t, found)

	// Subdomain hosts contain the fragment
	_, found = registry.Match("https://video.example.com/v/abc123")
	assert.True(t, found)
}

func TestRegistry_DuplicateRegistrationReplaces(t *testing.T) {
	registry := NewRegistry(nil)
	pattern := regexp.MustCompile(`example\.com/v/(\w+)`)

	first := registry.Register("example.com", pattern, domain.Platform{Name: "first"}, noopHandler)
	assert.True(t, first)
	assert.Equal(t, 1, registry.Len())

	second := registry.Register("example.com", regexp.MustCompile(`example\.com/v/(\w+)`), domain.Platform{Name: "second"}, noopHandler)
	assert.False(t, second)
	assert.Equal(t, 1, registry.Len())

	// Last registration wins
	m, found := registry.Match("https://example.com/v/abc")
	require.True(t, found)
	assert.Equal(t, "second", m.Platform.Name)
}

func TestRegistry_LongerLiteralPrefixWins(t *testing.T) {
	registry := NewRegistry(nil)

	registry.Register("example.com", regexp.MustCompile(`https?://example\.com/`), domain.Platform{Name: "generic"}, noopHandler)
	registry.Register("example.com", regexp.MustCompile(`https://example\.com/v/\w+`), domain.Platform{Name: "specific"}, noopHandler)

	m, found := registry.Match("https://example.com/v/abc123")
	require.True(t, found)
	assert.Equal(t, "specific", m.Platform.Name)
}

func TestRegistry_TieBreaksByRegistrationOrder(t *testing.T) {
	registry := NewRegistry(nil)

	// Identical literal prefixes, different suffixes; both match
	registry.Register("example.com", regexp.MustCompile(`https://example\.com/v/(\w+)`), domain.Platform{Name: "earlier"}, noopHandler)
	registry.Register("example.com", regexp.MustCompile(`https://example\.com/v/(\w+)$`), domain.Platform{Name: "later"}, noopHandler)

	m, found := registry.Match("https://example.com/v/abc123")
	require.True(t, found)
	assert.Equal(t, "earlier", m.Platform.Name)
}

func TestRegistry_Platforms(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register("a.com", regexp.MustCompile(`a\.com/x`), domain.Platform{Name: "a"}, noopHandler)
	registry.Register("a.com", regexp.MustCompile(`a\.com/y`), domain.Platform{Name: "a"}, noopHandler)
	registry.Register("b.com", regexp.MustCompile(`b\.com/x`), domain.Platform{Name: "b"}, noopHandler)

	platforms := registry.Platforms()
	require.Len(t, platforms, 2)
	assert.Equal(t, "a", platforms[0].Name)
	assert.Equal(t, "b", platforms[1].Name)
}

func TestRegistry_ConcurrentMatch(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register("example.com", regexp.MustCompile(`example\.com/v/(?P<id>\w+)`),
		domain.Platform{Name: "example"}, noopHandler)
	registry.Register("other.com", regexp.MustCompile(`https://other\.com/p/\w+`),
		domain.Platform{Name: "other"}, noopHandler)

	// Match is lock-free and must stay safe under parallel lookups
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m, found := registry.Match("https://example.com/v/abc123")
				assert.True(t, found)
				assert.Equal(t, "abc123", m.Named["id"])
			}
		}()
	}
	wg.Wait()
}

func TestRegistry_NoMatch(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register("example.com", regexp.MustCompile(`example\.com/v/\w+`), domain.Platform{Name: "example"}, noopHandler)

	_, found := registry.Match("https://example.com/profile/user")
	assert.False(t, found)
}
