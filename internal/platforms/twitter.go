package platforms

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/yourusername/link-resolve-go/internal/domain"
	"github.com/yourusername/link-resolve-go/internal/resolver"
)

// TwitterParser resolves x.com / twitter.com status links through the
// xdown HTML API, which returns download links for the status media.
type TwitterParser struct {
	resolver.Base
}

// NewTwitterParser creates the parser bound to the shared environment
func NewTwitterParser(env *resolver.Env) *TwitterParser {
	return &TwitterParser{Base: resolver.NewBase(env)}
}

// Platform returns the parser identity
func (p *TwitterParser) Platform() domain.Platform {
	return domain.Platform{Name: "twitter", DisplayName: "Twitter/X"}
}

var twitterStatusPattern = regexp.MustCompile(`https?://(?:x|twitter)\.com/[0-9A-Za-z_]{1,20}/status/(?P<id>[0-9]+)`)

// Rules returns the registered URL patterns
func (p *TwitterParser) Rules() []resolver.Rule {
	return []resolver.Rule{
		{Fragment: "x.com", Pattern: twitterStatusPattern, Handle: p.handleStatus},
		{Fragment: "twitter.com", Pattern: twitterStatusPattern, Handle: p.handleStatus},
	}
}

const xdownAPI = "https://xdown.app/api/ajaxSearch"

type xdownResponse struct {
	Status string `json:"status"`
	Data   string `json:"data"` // HTML fragment with download anchors
}

func (p *TwitterParser) handleStatus(ctx context.Context, m *resolver.Match) (*domain.ParseResult, error) {
	statusURL := m.Group(0)

	form := url.Values{}
	form.Set("q", statusURL)
	form.Set("lang", "en")

	extra := http.Header{}
	extra.Set("Origin", "https://xdown.app")
	extra.Set("Referer", "https://xdown.app/")
	extra.Set("Accept", "application/json, text/plain, */*")

	body, err := p.PostForm(ctx, xdownAPI, form, extra)
	if err != nil {
		return nil, domain.NewExtractionError(p.Platform(), "xdown request failed: %w", err)
	}

	var resp xdownResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, domain.NewExtractionError(p.Platform(), "malformed xdown response: %w", err)
	}
	if resp.Status != "ok" || resp.Data == "" {
		return nil, domain.NewExtractionError(p.Platform(), "xdown returned status %q", resp.Status)
	}

	videoURL, imageURLs, gifURLs, err := p.extractMediaLinks(resp.Data)
	if err != nil {
		return nil, domain.NewExtractionError(p.Platform(), "failed to extract media links: %w", err)
	}

	result := &domain.ParseResult{
		Platform: p.Platform(),
		URL:      statusURL,
	}

	if videoURL != "" {
		result.Contents = append(result.Contents, p.CreateVideo(ctx, videoURL, "", 0))
		return result, nil
	}

	result.Contents = append(result.Contents, p.CreateImages(ctx, imageURLs)...)
	result.Contents = append(result.Contents, p.CreateDynamics(ctx, gifURLs)...)
	return result, nil
}

// extractMediaLinks walks the download anchors of the xdown HTML
// fragment. Anchors pointing at the snapcdn host carry one media item
// each; the anchor text distinguishes videos, photos and gifs.
func (p *TwitterParser) extractMediaLinks(html string) (videoURL string, imageURLs, gifURLs []string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", nil, nil, err
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.HasPrefix(href, "https://dl.snapcdn.app/get?token=") {
			return
		}
		label := strings.ToLower(sel.Text())
		switch {
		case strings.Contains(label, "mp4"):
			if videoURL == "" {
				videoURL = href
			}
		case strings.Contains(label, "gif"):
			gifURLs = append(gifURLs, href)
		default:
			imageURLs = append(imageURLs, href)
		}
	})

	if videoURL == "" && len(imageURLs) == 0 && len(gifURLs) == 0 {
		return "", nil, nil, errNoMedia
	}
	return videoURL, imageURLs, gifURLs, nil
}
