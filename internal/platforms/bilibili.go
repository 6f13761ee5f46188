package platforms

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/yourusername/link-resolve-go/internal/domain"
	"github.com/yourusername/link-resolve-go/internal/resolver"
)

// BilibiliParser resolves bilibili.com video links through the
// web-interface view API and the html5 playurl API. b23.tv short links
// are re-entered through the dispatcher's redirect chase.
type BilibiliParser struct {
	resolver.Base
}

// NewBilibiliParser creates the parser bound to the shared environment
func NewBilibiliParser(env *resolver.Env) *BilibiliParser {
	p := &BilibiliParser{Base: resolver.NewBase(env)}
	headers := resolver.CommonHeaders()
	headers.Set("Referer", "https://www.bilibili.com/")
	p.SetHeaders(headers)
	return p
}

// Platform returns the parser identity
func (p *BilibiliParser) Platform() domain.Platform {
	return domain.Platform{Name: "bilibili", DisplayName: "Bilibili"}
}

// Rules returns the registered URL patterns
func (p *BilibiliParser) Rules() []resolver.Rule {
	return []resolver.Rule{
		{
			Fragment: "bilibili.com",
			Pattern:  regexp.MustCompile(`https?://(?:www\.|m\.)?bilibili\.com/video/(?P<bvid>BV[1-9A-Za-z]{10})`),
			Handle:   p.handleVideo,
		},
		{
			Fragment: "b23.tv",
			Pattern:  regexp.MustCompile(`https?://b23\.tv/[A-Za-z\d._?%&+\-=/#]+`),
			Handle:   p.handleShortLink,
		},
	}
}

type biliViewResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Bvid     string `json:"bvid"`
		Cid      int64  `json:"cid"`
		Title    string `json:"title"`
		Desc     string `json:"desc"`
		Pic      string `json:"pic"`
		Pubdate  int64  `json:"pubdate"`
		Duration int64  `json:"duration"` // seconds
		Owner    struct {
			Name string `json:"name"`
			Face string `json:"face"`
		} `json:"owner"`
	} `json:"data"`
}

type biliPlayResponse struct {
	Code int `json:"code"`
	Data struct {
		Durl []struct {
			URL string `json:"url"`
		} `json:"durl"`
	} `json:"data"`
}

func (p *BilibiliParser) handleVideo(ctx context.Context, m *resolver.Match) (*domain.ParseResult, error) {
	bvid := m.Named["bvid"]

	var view biliViewResponse
	viewURL := fmt.Sprintf("https://api.bilibili.com/x/web-interface/view?bvid=%s", bvid)
	if err := p.GetJSON(ctx, viewURL, nil, &view); err != nil {
		return nil, domain.NewExtractionError(p.Platform(), "view API failed: %w", err)
	}
	if view.Code != 0 {
		return nil, domain.NewExtractionError(p.Platform(), "view API returned code %d: %s", view.Code, view.Message)
	}

	var play biliPlayResponse
	playURL := fmt.Sprintf(
		"https://api.bilibili.com/x/player/playurl?bvid=%s&cid=%d&qn=64&platform=html5",
		bvid, view.Data.Cid)
	if err := p.GetJSON(ctx, playURL, nil, &play); err != nil {
		return nil, domain.NewExtractionError(p.Platform(), "playurl API failed: %w", err)
	}
	if play.Code != 0 || len(play.Data.Durl) == 0 {
		return nil, domain.NewExtractionError(p.Platform(), "%w", errNoMedia)
	}

	published := time.Unix(view.Data.Pubdate, 0)
	result := &domain.ParseResult{
		Platform:  p.Platform(),
		Title:     view.Data.Title,
		Text:      view.Data.Desc,
		URL:       fmt.Sprintf("https://www.bilibili.com/video/%s", bvid),
		Timestamp: &published,
		Author:    p.CreateAuthor(ctx, view.Data.Owner.Name, view.Data.Owner.Face, ""),
	}
	result.Contents = append(result.Contents, p.CreateVideo(ctx,
		play.Data.Durl[0].URL,
		view.Data.Pic,
		float64(view.Data.Duration)))
	return result, nil
}

// handleShortLink re-enters the dispatcher chase for a b23.tv link the
// handler already knows is a redirect
func (p *BilibiliParser) handleShortLink(ctx context.Context, m *resolver.Match) (*domain.ParseResult, error) {
	result, err := p.ParseWithRedirect(ctx, m.Group(0))
	if err != nil {
		return nil, domain.NewExtractionError(p.Platform(), "short link did not resolve to a known video: %w", err)
	}
	return result, nil
}
