package resolver

import "net/http"

const (
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	iosUA     = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1"
	androidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36"
)

// CommonHeaders returns the default desktop browser headers shared by
// most platform requests
func CommonHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", desktopUA)
	return h
}

// IOSHeaders returns mobile Safari headers for platforms that serve
// mobile pages with richer embedded state
func IOSHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", iosUA)
	return h
}

// AndroidHeaders returns mobile Chrome headers
func AndroidHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", androidUA)
	return h
}

// mergeHeaders overlays extra headers on a base set without mutating
// either argument
func mergeHeaders(base, extra http.Header) http.Header {
	merged := http.Header{}
	for k, vs := range base {
		merged[k] = append([]string(nil), vs...)
	}
	for k, vs := range extra {
		merged[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	return merged
}
