package download

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Config contains download-related limits and behavior
type Config struct {
	CacheDir      string
	Concurrency   int
	MaxSize       int64         // bytes, 0 disables the ceiling
	MaxDuration   time.Duration // declared media duration ceiling, 0 disables
	FetchTimeout  time.Duration // per-fetch wall clock timeout
	MaxRetries    int           // retries after the first attempt
	RetryDelay    time.Duration // linear backoff between attempts
	Base64Payload bool          // expose payloads as base64 instead of paths
}

// Manager fetches media bytes under concurrency, size and time ceilings.
// Tasks are deduplicated by (URL, headers) while the fetch is live: a
// second request for an identical key attaches to the pending task
// instead of fetching twice. Terminal tasks leave the table, so a later
// request for a previously failed resource starts a fresh fetch, and a
// completed one is served from the byte cache on disk.
type Manager struct {
	cfg    Config
	client *http.Client
	fs     afero.Fs
	logger *zap.Logger

	sem   chan struct{}
	mu    sync.Mutex
	tasks map[string]*Task
}

// NewManager creates a download manager. A nil client uses a default
// HTTP client without its own timeout; per-fetch timeouts come from cfg.
func NewManager(cfg Config, client *http.Client, fs afero.Fs, logger *zap.Logger) *Manager {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if client == nil {
		client = &http.Client{}
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:    cfg,
		client: client,
		fs:     fs,
		logger: logger,
		sem:    make(chan struct{}, cfg.Concurrency),
		tasks:  make(map[string]*Task),
	}
}

// Option adjusts a single download request
type Option func(*options)

type options struct {
	duration float64 // declared media duration in seconds
	fileName string
	ext      string
	proxy    string
}

// WithDuration declares the media duration in seconds, checked against
// the configured maximum before any bytes are requested.
func WithDuration(seconds float64) Option {
	return func(o *options) { o.duration = seconds }
}

// WithFileName overrides the generated cache file name
func WithFileName(name string) Option {
	return func(o *options) { o.fileName = name }
}

// WithProxy routes this fetch through the given proxy URL
func WithProxy(proxyURL string) Option {
	return func(o *options) { o.proxy = proxyURL }
}

// Video submits a video fetch. The returned task may already be
// terminal when the declared duration exceeds the configured maximum.
func (m *Manager) Video(ctx context.Context, rawURL string, headers http.Header, opts ...Option) *Task {
	return m.submit(ctx, rawURL, headers, ".mp4", opts)
}

// Audio submits an audio fetch with the same duration preflight as Video
func (m *Manager) Audio(ctx context.Context, rawURL string, headers http.Header, opts ...Option) *Task {
	return m.submit(ctx, rawURL, headers, ".mp3", opts)
}

// Image submits an image fetch
func (m *Manager) Image(ctx context.Context, rawURL string, headers http.Header, opts ...Option) *Task {
	return m.submit(ctx, rawURL, headers, ".jpg", opts)
}

// Images submits one fetch per URL. Fetches run concurrently under the
// global semaphore; the returned slice preserves the input order.
func (m *Manager) Images(ctx context.Context, rawURLs []string, headers http.Header, opts ...Option) []*Task {
	tasks := make([]*Task, 0, len(rawURLs))
	for _, u := range rawURLs {
		tasks = append(tasks, m.Image(ctx, u, headers, opts...))
	}
	return tasks
}

// Materialize blocks until the task is terminal and returns the cache
// file path. Repeat calls return the memoized result.
func (m *Manager) Materialize(ctx context.Context, t *Task) (string, error) {
	if err := t.Wait(ctx); err != nil {
		return "", err
	}
	path, _, err := t.Result()
	return path, err
}

// Payload returns the representation of the materialized bytes at the
// content model boundary: the file path by default, or the base64
// encoded file content when base64 output is configured.
func (m *Manager) Payload(ctx context.Context, t *Task) (string, error) {
	path, err := m.Materialize(ctx, t)
	if err != nil {
		return "", err
	}
	if !m.cfg.Base64Payload {
		return path, nil
	}
	data, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return "", fmt.Errorf("failed to read payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (m *Manager) submit(ctx context.Context, rawURL string, headers http.Header, defaultExt string, opts []Option) *Task {
	o := options{ext: defaultExt}
	for _, opt := range opts {
		opt(&o)
	}

	// Over-limit media never triggers a fetch. The rejected task is not
	// entered into the dedup table since it owns no network work.
	if m.cfg.MaxDuration > 0 && o.duration > m.cfg.MaxDuration.Seconds() {
		t := newTask(rawURL, headers)
		t.rejectWith(RejectDuration)
		m.logger.Warn("Media duration over limit, skipping fetch",
			zap.String("url", rawURL),
			zap.Float64("duration", o.duration),
			zap.Duration("max", m.cfg.MaxDuration))
		return t
	}

	key := dedupKey(rawURL, headers)
	m.mu.Lock()
	if existing, ok := m.tasks[key]; ok && !existing.Terminal() {
		m.mu.Unlock()
		return existing
	}
	t := newTask(rawURL, headers)
	m.tasks[key] = t
	m.mu.Unlock()

	go m.run(ctx, t, o)
	return t
}

// forget drops the task from the dedup table once its run has ended.
// The guard keeps a racing resubmission's fresh task in place.
func (m *Manager) forget(t *Task) {
	key := dedupKey(t.URL, t.Headers)
	m.mu.Lock()
	if m.tasks[key] == t {
		delete(m.tasks, key)
	}
	m.mu.Unlock()
}

func (m *Manager) run(ctx context.Context, t *Task, o options) {
	defer m.forget(t)

	// Excess requests queue on the semaphore in submission order
	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		t.failWith(FailCancelled, ctx.Err())
		return
	}

	t.markInFlight()

	name := o.fileName
	if name == "" {
		name = generateFileName(t.URL, o.ext)
	}
	dest := filepath.Join(m.cfg.CacheDir, name)

	// Cache hit: an earlier run already materialized this resource
	if info, err := m.fs.Stat(dest); err == nil && info.Size() > 0 {
		t.complete(dest, info.Size())
		return
	}

	client := m.client
	if o.proxy != "" {
		var err error
		client, err = m.proxyClient(o.proxy)
		if err != nil {
			t.failWith(FailNetwork, err)
			return
		}
	}

	var size int64
	err := retry.Do(
		func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, m.fetchTimeout())
			defer cancel()

			n, err := m.fetchOnce(fetchCtx, client, t, dest)
			if err != nil {
				return err
			}
			size = n
			return nil
		},
		retry.Attempts(uint(m.cfg.MaxRetries)+1),
		retry.Delay(m.cfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			m.logger.Warn("Download attempt failed",
				zap.String("url", t.URL),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	if err == nil {
		m.logger.Info("Download completed",
			zap.String("url", t.URL),
			zap.String("path", dest),
			zap.Int64("size", size))
		t.complete(dest, size)
		return
	}

	_ = m.fs.Remove(dest)

	switch {
	case errors.Is(err, errOversize):
		m.logger.Warn("Download rejected: size over limit", zap.String("url", t.URL))
		t.rejectWith(RejectOversize)
	case ctx.Err() != nil:
		// The submitting context ended, by cancellation or by its own
		// deadline; either way the fetch was cut short from outside.
		t.failWith(FailCancelled, err)
	case errors.Is(err, context.DeadlineExceeded):
		t.failWith(FailTimeout, err)
	default:
		var se *statusError
		if errors.As(err, &se) && se.code >= 500 {
			t.failWith(FailServer, err)
		} else {
			t.failWith(FailNetwork, err)
		}
		m.logger.Error("Download failed after retries",
			zap.String("url", t.URL),
			zap.Error(err))
	}
}

// fetchOnce performs a single streamed fetch attempt. Partial bytes are
// discarded on any error, including a mid-transfer size ceiling breach.
func (m *Manager) fetchOnce(ctx context.Context, client *http.Client, t *Task, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return 0, retry.Unrecoverable(err)
	}
	for k, vs := range t.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, &statusError{code: resp.StatusCode}
	}
	if m.cfg.MaxSize > 0 && resp.ContentLength > m.cfg.MaxSize {
		return 0, errOversize
	}

	file, err := m.fs.Create(dest)
	if err != nil {
		return 0, retry.Unrecoverable(err)
	}

	body := io.Reader(resp.Body)
	if m.cfg.MaxSize > 0 {
		// Read one byte past the ceiling to detect the breach
		body = io.LimitReader(resp.Body, m.cfg.MaxSize+1)
	}

	written, err := io.Copy(file, body)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = m.fs.Remove(dest)
		return 0, err
	}
	if m.cfg.MaxSize > 0 && written > m.cfg.MaxSize {
		_ = m.fs.Remove(dest)
		return 0, errOversize
	}
	return written, nil
}

func (m *Manager) fetchTimeout() time.Duration {
	if m.cfg.FetchTimeout > 0 {
		return m.cfg.FetchTimeout
	}
	return 5 * time.Minute
}

// proxyClient clones the manager's client with a fixed outbound proxy
func (m *Manager) proxyClient(proxyURL string) (*http.Client, error) {
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url %q: %w", proxyURL, err)
	}

	transport, ok := m.client.Transport.(*http.Transport)
	if !ok || transport == nil {
		transport = http.DefaultTransport.(*http.Transport)
	}
	transport = transport.Clone()
	transport.Proxy = http.ProxyURL(parsed)

	clone := *m.client
	clone.Transport = transport
	return &clone, nil
}

var errOversize = errors.New("size limit exceeded")

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// isTransient classifies errors worth retrying: connection level
// failures, timeouts, 429 and 5xx responses. Client errors and ceiling
// breaches are final.
func isTransient(err error) bool {
	if errors.Is(err, errOversize) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return true
}
