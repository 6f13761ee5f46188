package platforms

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/yourusername/link-resolve-go/internal/domain"
	"github.com/yourusername/link-resolve-go/internal/resolver"
)

// KuaishouParser resolves kuaishou.com share links. Short v.kuaishou.com
// links are chased to the full photo page first; the page embeds its
// state as a window.INIT_STATE JSON blob.
type KuaishouParser struct {
	resolver.Base
}

// NewKuaishouParser creates the parser bound to the shared environment
func NewKuaishouParser(env *resolver.Env) *KuaishouParser {
	p := &KuaishouParser{Base: resolver.NewBase(env)}
	headers := resolver.IOSHeaders()
	headers.Set("Referer", "https://v.kuaishou.com/")
	p.SetHeaders(headers)
	return p
}

// Platform returns the parser identity
func (p *KuaishouParser) Platform() domain.Platform {
	return domain.Platform{Name: "kuaishou", DisplayName: "Kuaishou"}
}

// Rules returns the registered URL patterns
func (p *KuaishouParser) Rules() []resolver.Rule {
	return []resolver.Rule{
		{
			Fragment: "v.kuaishou.com",
			Pattern:  regexp.MustCompile(`https?://v\.kuaishou\.com/[A-Za-z\d._?%&+\-=/#]+`),
			Handle:   p.handleShare,
		},
		{
			Fragment: "kuaishou.com",
			Pattern:  regexp.MustCompile(`https?://(?:www\.)?kuaishou\.com/[A-Za-z\d._?%&+\-=/#]+`),
			Handle:   p.handleShare,
		},
	}
}

var initStatePattern = regexp.MustCompile(`(?s)window\.INIT_STATE\s*=\s*(.*?)</script>`)

// ksCdnURL is one CDN-addressed resource in the page state
type ksCdnURL struct {
	CDN string `json:"cdn"`
	URL string `json:"url"`
}

// ksPhoto is the media unit of a kuaishou photo page
type ksPhoto struct {
	Caption    string     `json:"caption"`
	CoverURLs  []ksCdnURL `json:"coverUrls"`
	MainMvURLs []ksCdnURL `json:"mainMvUrls"`
	ExtParams  struct {
		Atlas struct {
			CDNList []ksCdnURL `json:"cdnList"`
			List    []string   `json:"list"`
		} `json:"atlas"`
	} `json:"ext_params"`
}

type ksStateEntry struct {
	Result int      `json:"result"`
	Photo  *ksPhoto `json:"photo"`
}

func (p *KuaishouParser) handleShare(ctx context.Context, m *resolver.Match) (*domain.ParseResult, error) {
	pageURL, err := p.FinalURL(ctx, m.Group(0))
	if err != nil {
		return nil, domain.NewExtractionError(p.Platform(), "failed to resolve share link: %w", err)
	}

	// The long-video page variant embeds a different state shape; the
	// photo variant of the same id carries everything needed.
	pageURL = strings.Replace(pageURL, "/fw/long-video/", "/fw/photo/", 1)

	html, err := p.GetText(ctx, pageURL, nil)
	if err != nil {
		return nil, domain.NewExtractionError(p.Platform(), "failed to fetch photo page: %w", err)
	}

	photo, err := p.extractPhoto(html)
	if err != nil {
		return nil, domain.NewExtractionError(p.Platform(), "%w", err)
	}

	result := &domain.ParseResult{
		Platform: p.Platform(),
		Title:    photo.Caption,
		URL:      pageURL,
	}

	if videoURL := photo.videoURL(); videoURL != "" {
		result.Contents = append(result.Contents,
			p.CreateVideo(ctx, videoURL, photo.coverURL(), 0))
		return result, nil
	}
	if imgURLs := photo.imageURLs(); len(imgURLs) > 0 {
		result.Contents = append(result.Contents, p.CreateImages(ctx, imgURLs)...)
		return result, nil
	}
	return nil, domain.NewExtractionError(p.Platform(), "%w", errNoMedia)
}

func (p *KuaishouParser) extractPhoto(html string) (*ksPhoto, error) {
	matched := initStatePattern.FindStringSubmatch(html)
	if matched == nil {
		return nil, fmt.Errorf("window.INIT_STATE not found in photo page")
	}

	var state map[string]ksStateEntry
	if err := decodeJSON([]byte(strings.TrimSpace(matched[1])), &state); err != nil {
		return nil, fmt.Errorf("malformed INIT_STATE: %w", err)
	}

	for _, entry := range state {
		if entry.Photo != nil {
			return entry.Photo, nil
		}
	}
	return nil, fmt.Errorf("INIT_STATE contains no photo entry")
}

func (ph *ksPhoto) videoURL() string {
	for _, u := range ph.MainMvURLs {
		if u.URL != "" {
			return u.URL
		}
	}
	return ""
}

func (ph *ksPhoto) coverURL() string {
	for _, u := range ph.CoverURLs {
		if u.URL != "" {
			return u.URL
		}
	}
	return ""
}

func (ph *ksPhoto) imageURLs() []string {
	atlas := ph.ExtParams.Atlas
	if len(atlas.CDNList) == 0 || len(atlas.List) == 0 {
		return nil
	}
	cdn := atlas.CDNList[0].CDN
	urls := make([]string, 0, len(atlas.List))
	for _, route := range atlas.List {
		urls = append(urls, fmt.Sprintf("https://%s/%s", cdn, strings.TrimPrefix(route, "/")))
	}
	return urls
}
