package platforms

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/yourusername/link-resolve-go/internal/domain"
	"github.com/yourusername/link-resolve-go/internal/resolver"
)

// NeteaseParser resolves NetEase Cloud Music song links, including the
// 163cn.tv short form, into audio contents.
type NeteaseParser struct {
	resolver.Base
}

// NewNeteaseParser creates the parser bound to the shared environment
func NewNeteaseParser(env *resolver.Env) *NeteaseParser {
	return &NeteaseParser{Base: resolver.NewBase(env)}
}

// Platform returns the parser identity
func (p *NeteaseParser) Platform() domain.Platform {
	return domain.Platform{Name: "netease", DisplayName: "NetEase Music"}
}

// Rules returns the registered URL patterns
func (p *NeteaseParser) Rules() []resolver.Rule {
	return []resolver.Rule{
		{
			Fragment: "music.163.com",
			Pattern:  regexp.MustCompile(`https?://(?:y\.)?music\.163\.com/[^\s]*[?&]id=(?P<id>\d+)`),
			Handle:   p.handleSong,
		},
		{
			Fragment: "163cn.tv",
			Pattern:  regexp.MustCompile(`https?://163cn\.tv/[A-Za-z0-9]+`),
			Handle:   p.handleShortLink,
		},
	}
}

var neteaseIDPattern = regexp.MustCompile(`[?&]id=(\d+)`)

// audio qualities tried in order until the API returns a playable URL
var neteaseQualities = []string{"lossless", "exhigh", "standard"}

type neteaseSongResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Name     string `json:"name"`
		Artist   string `json:"artist"`
		Pic      string `json:"pic"`
		URL      string `json:"url"`
		Format   string `json:"format"`
		Duration string `json:"duration"` // m:ss
	} `json:"data"`
}

func (p *NeteaseParser) handleSong(ctx context.Context, m *resolver.Match) (*domain.ParseResult, error) {
	songID := m.Named["id"]
	if songID == "" {
		return nil, domain.NewExtractionError(p.Platform(), "no song id in %s", m.Group(0))
	}
	return p.parseSong(ctx, songID, m.Group(0))
}

func (p *NeteaseParser) handleShortLink(ctx context.Context, m *resolver.Match) (*domain.ParseResult, error) {
	finalURL, err := p.FinalURL(ctx, m.Group(0))
	if err != nil {
		return nil, domain.NewExtractionError(p.Platform(), "failed to resolve short link: %w", err)
	}
	matched := neteaseIDPattern.FindStringSubmatch(finalURL)
	if matched == nil {
		return nil, domain.NewExtractionError(p.Platform(), "no song id after redirect: %s", finalURL)
	}
	return p.parseSong(ctx, matched[1], finalURL)
}

func (p *NeteaseParser) parseSong(ctx context.Context, songID, sourceURL string) (*domain.ParseResult, error) {
	var lastErr error
	for _, quality := range neteaseQualities {
		apiURL := "https://api.cenguigui.cn/api/netease/music_v1.php?id=" + songID +
			"&type=json&level=" + quality

		var resp neteaseSongResponse
		if err := p.GetJSON(ctx, apiURL, nil, &resp); err != nil {
			lastErr = err
			continue
		}
		if resp.Code != 200 || !strings.HasPrefix(resp.Data.URL, "http") {
			lastErr = domain.NewExtractionError(p.Platform(), "song API returned code %d: %s", resp.Code, resp.Msg)
			continue
		}

		result := &domain.ParseResult{
			Platform: p.Platform(),
			Title:    resp.Data.Name,
			URL:      sourceURL,
		}
		if resp.Data.Artist != "" {
			result.Author = &domain.Author{Name: resp.Data.Artist}
		}
		result.Contents = append(result.Contents, p.CreateAudio(ctx,
			resp.Data.URL,
			resp.Data.Pic,
			parseClock(resp.Data.Duration)))
		return result, nil
	}
	return nil, domain.NewExtractionError(p.Platform(), "all qualities failed: %v", lastErr)
}

// parseClock converts a m:ss display duration to seconds, 0 when the
// format is unknown
func parseClock(clock string) float64 {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		if secs, err := strconv.ParseFloat(clock, 64); err == nil {
			return secs
		}
		return 0
	}
	minutes, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	seconds, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0
	}
	return float64(minutes*60 + seconds)
}
