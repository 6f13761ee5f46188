package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/yourusername/link-resolve-go/internal/domain"
	"github.com/yourusername/link-resolve-go/internal/download"
)

// Env is the shared environment handed to every parser: the download
// manager, the HTTP client for platform API calls and the logger. The
// dispatcher attaches itself when constructed so ParseWithRedirect can
// re-enter the chase.
type Env struct {
	Downloader *download.Manager
	Client     *http.Client
	Logger     *zap.Logger

	dispatcher *Dispatcher
}

// NewEnv creates a parser environment with sane fallbacks
func NewEnv(downloader *download.Manager, client *http.Client, logger *zap.Logger) *Env {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Env{Downloader: downloader, Client: client, Logger: logger}
}

// Base carries the helper operations available to every platform
// implementation. Platform parsers embed it and build contents through
// its constructors, which route all media fetches through the download
// manager.
type Base struct {
	env     *Env
	headers http.Header
}

// NewBase creates a Base bound to the shared environment, using the
// common desktop headers by default.
func NewBase(env *Env) Base {
	return Base{env: env, headers: CommonHeaders()}
}

// SetHeaders replaces the default request headers of this parser
func (b *Base) SetHeaders(h http.Header) { b.headers = h }

// Headers returns the parser's default request headers
func (b *Base) Headers() http.Header { return b.headers }

// Logger returns the shared logger
func (b *Base) Logger() *zap.Logger { return b.env.Logger }

// Downloader returns the shared download manager
func (b *Base) Downloader() *download.Manager { return b.env.Downloader }

// CreateAuthor builds an author, fetching the avatar when a URL is
// given. A missing avatar is absent, never an error.
func (b *Base) CreateAuthor(ctx context.Context, name, avatarURL, description string) *domain.Author {
	author := &domain.Author{Name: name, Description: description}
	if avatarURL != "" {
		author.Avatar = b.env.Downloader.Image(ctx, avatarURL, b.headers)
	}
	return author
}

// CreateVideo builds a video content item. The video fetch is declared
// immediately; the declared duration short-circuits oversized media
// before any bytes move.
func (b *Base) CreateVideo(ctx context.Context, videoURL, coverURL string, duration float64, opts ...download.Option) *domain.VideoContent {
	opts = append(opts, download.WithDuration(duration))
	content := &domain.VideoContent{
		File:     b.env.Downloader.Video(ctx, videoURL, b.headers, opts...),
		Duration: duration,
	}
	if coverURL != "" {
		content.Cover = b.env.Downloader.Image(ctx, coverURL, b.headers)
	}
	return content
}

// CreateImages builds one image content per URL. The underlying
// fetches run concurrently under the manager's semaphore; the returned
// contents preserve the input order.
func (b *Base) CreateImages(ctx context.Context, imageURLs []string) []domain.MediaContent {
	tasks := b.env.Downloader.Images(ctx, imageURLs, b.headers)
	contents := make([]domain.MediaContent, 0, len(tasks))
	for _, t := range tasks {
		contents = append(contents, &domain.ImageContent{File: t})
	}
	return contents
}

// CreateImage builds a single image content item
func (b *Base) CreateImage(ctx context.Context, imageURL string) *domain.ImageContent {
	return &domain.ImageContent{File: b.env.Downloader.Image(ctx, imageURL, b.headers)}
}

// CreateGraphics builds an image-with-caption content item. The image
// is required, the caption may be empty.
func (b *Base) CreateGraphics(ctx context.Context, text, imageURL string) *domain.GraphicsContent {
	return &domain.GraphicsContent{
		Text:  text,
		Image: b.env.Downloader.Image(ctx, imageURL, b.headers),
	}
}

// CreateDynamics builds animated clip contents, one per URL
func (b *Base) CreateDynamics(ctx context.Context, clipURLs []string) []domain.MediaContent {
	contents := make([]domain.MediaContent, 0, len(clipURLs))
	for _, u := range clipURLs {
		contents = append(contents, &domain.DynamicContent{
			File: b.env.Downloader.Video(ctx, u, b.headers),
		})
	}
	return contents
}

// CreateSticker builds a sticker content item with a size hint
func (b *Base) CreateSticker(ctx context.Context, stickerURL string, size domain.StickerSize, alt string) *domain.StickerContent {
	return &domain.StickerContent{
		File: b.env.Downloader.Image(ctx, stickerURL, b.headers),
		Size: size,
		Alt:  alt,
	}
}

// CreateAudio builds an audio content item with the same duration
// preflight as video
func (b *Base) CreateAudio(ctx context.Context, audioURL, coverURL string, duration float64, opts ...download.Option) *domain.AudioContent {
	opts = append(opts, download.WithDuration(duration))
	content := &domain.AudioContent{
		File:     b.env.Downloader.Audio(ctx, audioURL, b.headers, opts...),
		Duration: duration,
	}
	if coverURL != "" {
		content.Cover = b.env.Downloader.Image(ctx, coverURL, b.headers)
	}
	return content
}

// ResolveRedirect follows a single redirect hop and returns the target
// URL, or the input unchanged when the response is not a redirect.
func (b *Base) ResolveRedirect(ctx context.Context, rawURL string) (string, error) {
	if b.env.dispatcher == nil {
		return "", errors.New("resolver: dispatcher not attached")
	}
	return b.env.dispatcher.redirect.resolveOnce(ctx, rawURL, b.headers)
}

// FinalURL follows redirects up to the configured hop limit
func (b *Base) FinalURL(ctx context.Context, rawURL string) (string, error) {
	d := b.env.dispatcher
	if d == nil {
		return "", errors.New("resolver: dispatcher not attached")
	}
	return d.redirect.finalURL(ctx, rawURL, b.headers, d.cfg.RedirectHops)
}

// ParseWithRedirect re-enters the dispatcher's redirect chase for
// handlers that already know they hold a short link.
func (b *Base) ParseWithRedirect(ctx context.Context, rawURL string) (*domain.ParseResult, error) {
	d := b.env.dispatcher
	if d == nil {
		return nil, errors.New("resolver: dispatcher not attached")
	}
	m, ok := d.chase(ctx, rawURL)
	if !ok {
		return nil, domain.ErrNoMatch
	}
	return d.invoke(ctx, m)
}

// GetJSON performs one GET round trip and decodes the JSON body
func (b *Base) GetJSON(ctx context.Context, rawURL string, extra http.Header, v any) error {
	body, err := b.get(ctx, rawURL, extra)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("malformed response from %s: %w", rawURL, err)
	}
	return nil
}

// GetDocument performs one GET round trip and parses the HTML body
func (b *Base) GetDocument(ctx context.Context, rawURL string, extra http.Header) (*goquery.Document, error) {
	body, err := b.get(ctx, rawURL, extra)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("malformed HTML from %s: %w", rawURL, err)
	}
	return doc, nil
}

// GetText performs one GET round trip and returns the body as a string
func (b *Base) GetText(ctx context.Context, rawURL string, extra http.Header) (string, error) {
	body, err := b.get(ctx, rawURL, extra)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read response from %s: %w", rawURL, err)
	}
	return string(data), nil
}

// PostForm performs one POST round trip with form-encoded data and
// returns the body
func (b *Base) PostForm(ctx context.Context, rawURL string, data url.Values, extra http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	applyHeaders(req, mergeHeaders(b.headers, extra))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.env.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &statusError{code: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

func (b *Base) get(ctx context.Context, rawURL string, extra http.Header) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	applyHeaders(req, mergeHeaders(b.headers, extra))

	resp, err := b.env.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, &statusError{code: resp.StatusCode}
	}
	return resp.Body, nil
}

func applyHeaders(req *http.Request, headers http.Header) {
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}
