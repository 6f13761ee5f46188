package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/link-resolve-go/internal/domain"
	"github.com/yourusername/link-resolve-go/internal/download"
)

func testDispatcher(t *testing.T, registry *Registry, cfg domain.ResolverConfig) *Dispatcher {
	t.Helper()
	if cfg.RedirectHops == 0 {
		cfg.RedirectHops = 5
	}
	env := NewEnv(nil, nil, nil)
	return NewDispatcher(env, registry, cfg, nil)
}

func TestDispatcher_InvokesMatchedHandler(t *testing.T) {
	registry := NewRegistry(nil)
	var calls int64
	registry.Register("example.com", regexp.MustCompile(`example\.com/v/(?P<id>\w+)`),
		domain.Platform{Name: "example", DisplayName: "Example"},
		func(ctx context.Context, m *Match) (*domain.ParseResult, error) {
			atomic.AddInt64(&calls, 1)
			assert.Equal(t, "abc123", m.Named["id"])
			return &domain.ParseResult{
				Platform: m.Platform,
				Title:    "a video",
				URL:      m.URL,
			}, nil
		})

	d := testDispatcher(t, registry, domain.ResolverConfig{})

	result, err := d.Dispatch(context.Background(), "check this out https://video.example.com/v/abc123 thanks")
	require.NoError(t, err)
	assert.Equal(t, "example", result.Platform.Name)
	assert.Equal(t, "a video", result.Title)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestDispatcher_NoURLs(t *testing.T) {
	d := testDispatcher(t, NewRegistry(nil), domain.ResolverConfig{})

	_, err := d.Dispatch(context.Background(), "no links in here")
	assert.ErrorIs(t, err, domain.ErrNoMatch)
}

func TestDispatcher_NoMatchingPattern(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register("example.com", regexp.MustCompile(`example\.com/v/\w+`),
		domain.Platform{Name: "example"}, noopHandler)

	d := testDispatcher(t, registry, domain.ResolverConfig{RedirectHops: 1})

	_, err := d.Dispatch(context.Background(), "https://unknown.test.invalid/path")
	assert.ErrorIs(t, err, domain.ErrNoMatch)
}

func TestDispatcher_ChasesRedirectForUnmatchedCandidate(t *testing.T) {
	registry := NewRegistry(nil)
	var calls int64
	registry.Register("example.com", regexp.MustCompile(`example\.com/v/(?P<id>\w+)`),
		domain.Platform{Name: "example"},
		func(ctx context.Context, m *Match) (*domain.ParseResult, error) {
			atomic.AddInt64(&calls, 1)
			assert.Equal(t, "abc123", m.Named["id"])
			return &domain.ParseResult{Platform: m.Platform, URL: m.URL}, nil
		})

	// Short-link host redirecting to the canonical URL
	shortener := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://example.com/v/abc123", http.StatusFound)
	}))
	defer shortener.Close()

	d := testDispatcher(t, registry, domain.ResolverConfig{RedirectHops: 5})

	result, err := d.Dispatch(context.Background(), shortener.URL+"/x9")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/v/abc123", result.URL)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestDispatcher_HopLimitFoldsToNoMatch(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register("example.com", regexp.MustCompile(`example\.com/v/\w+`),
		domain.Platform{Name: "example"}, noopHandler)

	// Redirect loop that never reaches a registered host
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	d := testDispatcher(t, registry, domain.ResolverConfig{RedirectHops: 3})

	_, err := d.Dispatch(context.Background(), server.URL+"/loop")
	assert.ErrorIs(t, err, domain.ErrNoMatch)
}

func TestDispatcher_DisabledPlatform(t *testing.T) {
	registry := NewRegistry(nil)
	var calls int64
	registry.Register("example.com", regexp.MustCompile(`example\.com/v/\w+`),
		domain.Platform{Name: "example", DisplayName: "Example"},
		func(ctx context.Context, m *Match) (*domain.ParseResult, error) {
			atomic.AddInt64(&calls, 1)
			return &domain.ParseResult{Platform: m.Platform}, nil
		})

	d := testDispatcher(t, registry, domain.ResolverConfig{
		DisabledPlatforms: []string{"example"},
	})

	_, err := d.Dispatch(context.Background(), "https://example.com/v/abc123")
	var disabledErr *domain.PlatformDisabledError
	require.ErrorAs(t, err, &disabledErr)
	assert.Equal(t, "example", disabledErr.Platform.Name)
	assert.Equal(t, int64(0), atomic.LoadInt64(&calls), "disabled platform handler must not run")
	assert.True(t, d.Disabled("example"))
}

func TestDispatcher_FirstMatchOnly(t *testing.T) {
	registry := NewRegistry(nil)
	var firstCalls, secondCalls int64
	registry.Register("a.example.com", regexp.MustCompile(`a\.example\.com/\w+`),
		domain.Platform{Name: "a"},
		func(ctx context.Context, m *Match) (*domain.ParseResult, error) {
			atomic.AddInt64(&firstCalls, 1)
			return nil, errors.New("extraction blew up")
		})
	registry.Register("b.example.com", regexp.MustCompile(`b\.example\.com/\w+`),
		domain.Platform{Name: "b"},
		func(ctx context.Context, m *Match) (*domain.ParseResult, error) {
			atomic.AddInt64(&secondCalls, 1)
			return &domain.ParseResult{Platform: m.Platform}, nil
		})

	d := testDispatcher(t, registry, domain.ResolverConfig{})

	// First candidate fails; dispatch must not fall through to the second
	_, err := d.Dispatch(context.Background(), "https://a.example.com/one https://b.example.com/two")
	var extractionErr *domain.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, "a", extractionErr.Platform.Name)
	assert.Equal(t, int64(1), atomic.LoadInt64(&firstCalls))
	assert.Equal(t, int64(0), atomic.LoadInt64(&secondCalls))
}

func TestDispatcher_SkipsUnmatchedCandidates(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register("example.com", regexp.MustCompile(`example\.com/v/(?P<id>\w+)`),
		domain.Platform{Name: "example"},
		func(ctx context.Context, m *Match) (*domain.ParseResult, error) {
			return &domain.ParseResult{Platform: m.Platform, URL: m.URL}, nil
		})

	d := testDispatcher(t, registry, domain.ResolverConfig{RedirectHops: 1})

	// The first URL resolves nowhere; the second matches directly
	result, err := d.Dispatch(context.Background(),
		"https://nowhere.test.invalid/a and https://example.com/v/abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/v/abc123", result.URL)
}

func TestDispatcher_HandlerPanicBecomesExtractionError(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register("example.com", regexp.MustCompile(`example\.com/v/\w+`),
		domain.Platform{Name: "example"},
		func(ctx context.Context, m *Match) (*domain.ParseResult, error) {
			panic("unexpected payload shape")
		})

	d := testDispatcher(t, registry, domain.ResolverConfig{})

	_, err := d.Dispatch(context.Background(), "https://example.com/v/abc123")
	var extractionErr *domain.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Contains(t, err.Error(), "unexpected payload shape")
}

func TestDispatcher_NilResultIsError(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register("example.com", regexp.MustCompile(`example\.com/v/\w+`),
		domain.Platform{Name: "example"},
		func(ctx context.Context, m *Match) (*domain.ParseResult, error) {
			return nil, nil
		})

	d := testDispatcher(t, registry, domain.ResolverConfig{})

	_, err := d.Dispatch(context.Background(), "https://example.com/v/abc123")
	var extractionErr *domain.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
}

func TestDispatcher_AppliesBundleThreshold(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register("example.com", regexp.MustCompile(`example\.com/v/\w+`),
		domain.Platform{Name: "example"},
		func(ctx context.Context, m *Match) (*domain.ParseResult, error) {
			return &domain.ParseResult{
				Platform: m.Platform,
				Contents: make([]domain.MediaContent, 4),
			}, nil
		})

	d := testDispatcher(t, registry, domain.ResolverConfig{BundleThreshold: 4})

	result, err := d.Dispatch(context.Background(), "https://example.com/v/abc123")
	require.NoError(t, err)
	assert.True(t, result.ForwardBundle)
}

func TestDispatcher_DownloadsOutliveDispatchReturn(t *testing.T) {
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		w.Write([]byte("image-bytes"))
	}))
	defer cdn.Close()

	env := testEnv(t, download.Config{})
	registry := NewRegistry(nil)
	registry.Register("example.com", regexp.MustCompile(`example\.com/v/(?P<id>\w+)`),
		domain.Platform{Name: "example"},
		func(ctx context.Context, m *Match) (*domain.ParseResult, error) {
			task := env.Downloader.Image(ctx, cdn.URL+"/pic.jpg", nil)
			return &domain.ParseResult{
				Platform: m.Platform,
				URL:      m.URL,
				Contents: []domain.MediaContent{&domain.ImageContent{File: task}},
			}, nil
		})

	d := NewDispatcher(env, registry, domain.ResolverConfig{
		RedirectHops: 5,
		ParseTimeout: 5 * time.Second,
	}, nil)

	result, err := d.Dispatch(context.Background(), "https://example.com/v/abc123")
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)

	// Materialization happens after Dispatch has returned; the parse
	// deadline has not fired, so the fetch must still complete.
	task := result.Contents[0].Task()
	path, err := env.Downloader.Materialize(context.Background(), task)
	require.NoError(t, err)
	assert.NotEmpty(t, path)
	assert.Equal(t, download.StatusCompleted, task.Status())
}

func TestDispatcher_ShortDomainSkipsDirectMatch(t *testing.T) {
	shortener := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://example.com/v/abc123", http.StatusFound)
	}))
	defer shortener.Close()
	shortHost := strings.TrimPrefix(shortener.URL, "http://")

	registry := NewRegistry(nil)
	var shortCalls, targetCalls int64
	// Greedy rule that would swallow the raw short link on a direct lookup
	registry.Register(shortHost,
		regexp.MustCompile(`http://`+regexp.QuoteMeta(shortHost)+`/\w+`),
		domain.Platform{Name: "short"},
		func(ctx context.Context, m *Match) (*domain.ParseResult, error) {
			atomic.AddInt64(&shortCalls, 1)
			return &domain.ParseResult{Platform: m.Platform, URL: m.URL}, nil
		})
	registry.Register("example.com", regexp.MustCompile(`example\.com/v/(?P<id>\w+)`),
		domain.Platform{Name: "example"},
		func(ctx context.Context, m *Match) (*domain.ParseResult, error) {
			atomic.AddInt64(&targetCalls, 1)
			return &domain.ParseResult{Platform: m.Platform, URL: m.URL}, nil
		})

	d := testDispatcher(t, registry, domain.ResolverConfig{
		RedirectHops: 5,
		ShortDomains: []string{shortHost},
	})

	result, err := d.Dispatch(context.Background(), shortener.URL+"/x9")
	require.NoError(t, err)
	assert.Equal(t, "example", result.Platform.Name)
	assert.Equal(t, "https://example.com/v/abc123", result.URL)
	assert.Equal(t, int64(0), atomic.LoadInt64(&shortCalls), "short-link host must be chased, not matched")
	assert.Equal(t, int64(1), atomic.LoadInt64(&targetCalls))
}

func TestDispatcher_ParseTimeout(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register("example.com", regexp.MustCompile(`example\.com/v/\w+`),
		domain.Platform{Name: "example"},
		func(ctx context.Context, m *Match) (*domain.ParseResult, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
				return &domain.ParseResult{Platform: m.Platform}, nil
			}
		})

	d := testDispatcher(t, registry, domain.ResolverConfig{ParseTimeout: 20 * time.Millisecond})

	_, err := d.Dispatch(context.Background(), "https://example.com/v/abc123")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
