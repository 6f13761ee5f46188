package resolver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// redirectResolver follows Location headers without letting the HTTP
// client chase redirects on its own, so each hop is observable and the
// hop limit is enforced exactly.
type redirectResolver struct {
	client *http.Client
}

func newRedirectResolver(base *http.Client) *redirectResolver {
	client := &http.Client{Timeout: 15 * time.Second}
	if base != nil {
		clone := *base
		client = &clone
	}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &redirectResolver{client: client}
}

// resolveOnce performs a single hop. A non-redirect response returns
// the input URL unchanged, which is how chase loops detect their
// termination point.
func (r *redirectResolver) resolveOnce(ctx context.Context, rawURL string, headers http.Header) (string, error) {
	var location string
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			for k, vs := range headers {
				for _, v := range vs {
					req.Header.Add(k, v)
				}
			}

			resp, err := r.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(&statusError{code: resp.StatusCode})
			}

			location = rawURL
			if loc := resp.Header.Get("Location"); loc != "" && resp.StatusCode >= 300 && resp.StatusCode < 400 {
				if u, err := resp.Request.URL.Parse(loc); err == nil {
					location = u.String()
				}
			}
			return nil
		},
		retry.Attempts(2),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	return location, err
}

// finalURL follows redirects up to the hop limit and returns the last
// URL reached. Resolving an already-final URL returns it unchanged.
func (r *redirectResolver) finalURL(ctx context.Context, rawURL string, headers http.Header, maxHops int) (string, error) {
	current := rawURL
	for hop := 0; hop < maxHops; hop++ {
		next, err := r.resolveOnce(ctx, current, headers)
		if err != nil {
			return current, err
		}
		if next == current {
			return current, nil
		}
		current = next
	}
	return current, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}
