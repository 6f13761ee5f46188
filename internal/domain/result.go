package domain

import (
	"fmt"
	"time"
)

// ParseResult is the aggregate a handler produces for one matched URL.
// Contents are display-ordered; an empty contents list is a valid
// text-only result.
type ParseResult struct {
	Platform  Platform       `json:"platform"`
	Title     string         `json:"title,omitempty"`
	Text      string         `json:"text,omitempty"`
	Author    *Author        `json:"author,omitempty"`
	Contents  []MediaContent `json:"-"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
	URL       string         `json:"url,omitempty"`

	// ForwardBundle asks the renderer to merge the contents into one
	// forwarded bundle instead of individual messages
	ForwardBundle bool `json:"forward_bundle"`
}

// Header builds the display header line: platform, author and title
func (r *ParseResult) Header() string {
	header := r.Platform.DisplayName
	if r.Author != nil && r.Author.Name != "" {
		header += " @" + r.Author.Name
	}
	if r.Title != "" {
		header += " | " + r.Title
	}
	return header
}

// FormatTimestamp renders the publish time, empty when unknown
func (r *ParseResult) FormatTimestamp() string {
	if r.Timestamp == nil {
		return ""
	}
	return r.Timestamp.Format("2006-01-02 15:04:05")
}

// CountByKind returns how many content items of the given kind the
// result carries
func (r *ParseResult) CountByKind(kind MediaKind) int {
	n := 0
	for _, c := range r.Contents {
		if c.Kind() == kind {
			n++
		}
	}
	return n
}

// ApplyBundleThreshold sets the forward-bundle flag when the number of
// content items reaches the threshold. A threshold below 1 disables
// bundling.
func (r *ParseResult) ApplyBundleThreshold(threshold int) {
	if threshold < 1 {
		return
	}
	r.ForwardBundle = len(r.Contents) >= threshold
}

// FormatDuration renders a duration in seconds as m:ss
func FormatDuration(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
