package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/yourusername/link-resolve-go/internal/domain"
	"github.com/yourusername/link-resolve-go/internal/resolver"
)

// WeiboParser resolves weibo.com and m.weibo.cn status links through
// the mobile statuses/show API, plus video.weibo.com fid links through
// the h5 player component API.
type WeiboParser struct {
	resolver.Base
}

// NewWeiboParser creates the parser bound to the shared environment
func NewWeiboParser(env *resolver.Env) *WeiboParser {
	p := &WeiboParser{Base: resolver.NewBase(env)}
	headers := resolver.CommonHeaders()
	headers.Set("Referer", "https://weibo.com/")
	p.SetHeaders(headers)
	return p
}

// Platform returns the parser identity
func (p *WeiboParser) Platform() domain.Platform {
	return domain.Platform{Name: "weibo", DisplayName: "Weibo"}
}

// Rules returns the registered URL patterns
func (p *WeiboParser) Rules() []resolver.Rule {
	return []resolver.Rule{
		{
			Fragment: "weibo.com",
			Pattern:  regexp.MustCompile(`https?://(?:www\.|m\.|video\.)?weibo\.com/[A-Za-z\d._?%&+\-=/#@:]+`),
			Handle:   p.handleShare,
		},
		{
			Fragment: "m.weibo.cn",
			Pattern:  regexp.MustCompile(`https?://m\.weibo\.cn/[A-Za-z\d._?%&+\-=/#@]+`),
			Handle:   p.handleShare,
		},
	}
}

var (
	wbFidPattern    = regexp.MustCompile(`video\.weibo\.com/show\?fid=(\d+:\d+)`)
	wbDetailPattern = regexp.MustCompile(`m\.weibo\.cn(?:/detail|/status)?/([A-Za-z\d]+)`)
	wbMidPattern    = regexp.MustCompile(`mid=([A-Za-z\d]+)`)
	wbPathPattern   = regexp.MustCompile(`weibo\.com/[A-Za-z\d]+/([A-Za-z\d]+)`)
)

func (p *WeiboParser) handleShare(ctx context.Context, m *resolver.Match) (*domain.ParseResult, error) {
	shareURL := m.Group(0)

	if matched := wbFidPattern.FindStringSubmatch(shareURL); matched != nil {
		return p.parseFid(ctx, matched[1])
	}

	var weiboID string
	switch {
	case wbDetailPattern.MatchString(shareURL):
		weiboID = wbDetailPattern.FindStringSubmatch(shareURL)[1]
	case wbMidPattern.MatchString(shareURL):
		weiboID = mid2id(wbMidPattern.FindStringSubmatch(shareURL)[1])
	case wbPathPattern.MatchString(shareURL):
		weiboID = wbPathPattern.FindStringSubmatch(shareURL)[1]
	default:
		return nil, domain.NewExtractionError(p.Platform(), "no status id in %s", shareURL)
	}

	return p.parseStatus(ctx, weiboID)
}

type wbStatusResponse struct {
	Ok   int `json:"ok"`
	Data struct {
		Text        string `json:"text"` // HTML fragment
		StatusTitle string `json:"status_title"`
		CreatedAt   string `json:"created_at"`
		User        struct {
			ScreenName      string `json:"screen_name"`
			ProfileImageURL string `json:"profile_image_url"`
			Description     string `json:"description"`
		} `json:"user"`
		Pics []struct {
			URL   string `json:"url"`
			Large struct {
				URL string `json:"url"`
			} `json:"large"`
		} `json:"pics"`
		PageInfo struct {
			Type      string `json:"type"`
			PagePic   struct {
				URL string `json:"url"`
			} `json:"page_pic"`
			MediaInfo struct {
				StreamURL   string  `json:"stream_url"`
				StreamURLHD string  `json:"stream_url_hd"`
				Duration    float64 `json:"duration"`
			} `json:"media_info"`
		} `json:"page_info"`
	} `json:"data"`
}

// parseStatus fetches one status through the mobile XHR API, which
// works without cookies as long as the request looks like the m.weibo
// web app.
func (p *WeiboParser) parseStatus(ctx context.Context, weiboID string) (*domain.ParseResult, error) {
	extra := http.Header{}
	extra.Set("Accept", "application/json, text/plain, */*")
	extra.Set("Referer", fmt.Sprintf("https://m.weibo.cn/detail/%s", weiboID))
	extra.Set("X-Requested-With", "XMLHttpRequest")
	extra.Set("MWeibo-Pwa", "1")

	apiURL := fmt.Sprintf("https://m.weibo.cn/statuses/show?id=%s&_=%d", weiboID, time.Now().UnixMilli())

	var resp wbStatusResponse
	if err := p.GetJSON(ctx, apiURL, extra, &resp); err != nil {
		return nil, domain.NewExtractionError(p.Platform(), "statuses/show failed: %w", err)
	}
	if resp.Ok != 1 {
		return nil, domain.NewExtractionError(p.Platform(), "statuses/show returned ok=%d", resp.Ok)
	}

	status := resp.Data
	result := &domain.ParseResult{
		Platform: p.Platform(),
		Title:    status.StatusTitle,
		Text:     stripHTML(status.Text),
		URL:      fmt.Sprintf("https://m.weibo.cn/detail/%s", weiboID),
		Author: p.CreateAuthor(ctx,
			status.User.ScreenName,
			status.User.ProfileImageURL,
			status.User.Description),
	}
	if ts, err := time.Parse(time.RubyDate, status.CreatedAt); err == nil {
		result.Timestamp = &ts
	}

	if status.PageInfo.Type == "video" {
		videoURL := status.PageInfo.MediaInfo.StreamURLHD
		if videoURL == "" {
			videoURL = status.PageInfo.MediaInfo.StreamURL
		}
		if videoURL != "" {
			result.Contents = append(result.Contents, p.CreateVideo(ctx,
				videoURL,
				status.PageInfo.PagePic.URL,
				status.PageInfo.MediaInfo.Duration))
			return result, nil
		}
	}

	urls := make([]string, 0, len(status.Pics))
	for _, pic := range status.Pics {
		u := pic.Large.URL
		if u == "" {
			u = pic.URL
		}
		if u != "" {
			urls = append(urls, u)
		}
	}
	result.Contents = append(result.Contents, p.CreateImages(ctx, urls)...)
	return result, nil
}

type wbPlayInfoResponse struct {
	Data struct {
		PlayInfo struct {
			Title      string            `json:"title"`
			Author     string            `json:"author"`
			CoverImage string            `json:"cover_image"`
			StreamURL  string            `json:"stream_url"`
			Duration   float64           `json:"duration"`
			URLs       map[string]string `json:"urls"`
		} `json:"Component_Play_Playinfo"`
	} `json:"data"`
}

// parseFid resolves a video.weibo.com show link through the h5 player
// component API
func (p *WeiboParser) parseFid(ctx context.Context, fid string) (*domain.ParseResult, error) {
	apiURL := fmt.Sprintf("https://h5.video.weibo.com/api/component?page=/show/%s", fid)

	extra := http.Header{}
	extra.Set("Referer", fmt.Sprintf("https://h5.video.weibo.com/show/%s", fid))

	form := url.Values{}
	form.Set("data", fmt.Sprintf(`{"Component_Play_Playinfo":{"oid":"%s"}}`, fid))

	body, err := p.PostForm(ctx, apiURL, form, extra)
	if err != nil {
		return nil, domain.NewExtractionError(p.Platform(), "play info request failed: %w", err)
	}

	var resp wbPlayInfoResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, domain.NewExtractionError(p.Platform(), "malformed play info: %w", err)
	}

	info := resp.Data.PlayInfo
	videoURL := info.StreamURL
	// stream_url is the lowest bitrate; the urls map lists better ones
	for _, u := range info.URLs {
		videoURL = "https:" + u
		break
	}
	if videoURL == "" {
		return nil, domain.NewExtractionError(p.Platform(), "%w", errNoMedia)
	}

	result := &domain.ParseResult{
		Platform: p.Platform(),
		Title:    info.Title,
		URL:      fmt.Sprintf("https://video.weibo.com/show?fid=%s", fid),
	}
	if info.Author != "" {
		result.Author = &domain.Author{Name: info.Author}
	}
	result.Contents = append(result.Contents, p.CreateVideo(ctx,
		videoURL, "https:"+info.CoverImage, info.Duration))
	return result, nil
}

// stripHTML reduces a weibo HTML text fragment to its visible text
func stripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}

const wbBase62 = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// mid2id converts a base62 mid to the numeric status id, decoding the
// mid in 4-character chunks from the right, each chunk yielding up to
// seven digits.
func mid2id(mid string) string {
	var parts []string
	for len(mid) > 0 {
		cut := len(mid) - 4
		if cut < 0 {
			cut = 0
		}
		chunk := mid[cut:]
		mid = mid[:cut]

		num := int64(0)
		for _, c := range chunk {
			num = num*62 + int64(strings.IndexRune(wbBase62, c))
		}
		if len(mid) > 0 {
			parts = append([]string{fmt.Sprintf("%07d", num)}, parts...)
		} else {
			parts = append([]string{fmt.Sprintf("%d", num)}, parts...)
		}
	}
	return strings.Join(parts, "")
}
