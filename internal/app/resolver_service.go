package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/link-resolve-go/internal/domain"
	"github.com/yourusername/link-resolve-go/internal/resolver"
)

// ResolverService wraps the dispatcher with a bounded result cache and
// parse-history recording. The cache is keyed by the URL that matched,
// so two messages carrying the same link share one parse.
type ResolverService struct {
	dispatcher *resolver.Dispatcher
	cache      *resultCache
	history    domain.HistoryRepository
	logger     *zap.Logger
}

// NewResolverService creates a resolver service. The history repository
// may be nil, in which case outcomes are not persisted.
func NewResolverService(dispatcher *resolver.Dispatcher, cfg domain.ResolverConfig, history domain.HistoryRepository, logger *zap.Logger) *ResolverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	cacheSize := cfg.ResultCacheSize
	if cacheSize < 1 {
		cacheSize = 100
	}

	return &ResolverService{
		dispatcher: dispatcher,
		cache:      newResultCache(cacheSize),
		history:    history,
		logger:     logger,
	}
}

// Resolve dispatches a text message and records the outcome. Cached
// results are served without re-invoking the handler.
func (s *ResolverService) Resolve(ctx context.Context, text string) (*domain.ParseResult, error) {
	m, matched := s.matchCandidate(text)
	if matched {
		if cached, hit := s.cache.get(m.URL); hit {
			s.logger.Debug("Result cache hit", zap.String("url", m.URL))
			return cached, nil
		}
	}

	start := time.Now()
	result, err := s.dispatcher.Dispatch(ctx, text)
	latency := time.Since(start)

	s.record(text, result, err, latency)

	if err != nil {
		return nil, err
	}

	// Cache under the URL the next lookup will present: the matched
	// candidate, not the canonical URL the handler may have rewritten.
	key := result.URL
	if matched {
		key = m.URL
	}
	s.cache.put(key, result)
	return result, nil
}

// matchCandidate finds the first registry-matched URL in the text
// without chasing redirects, for cache lookup only.
func (s *ResolverService) matchCandidate(text string) (*resolver.Match, bool) {
	for _, candidate := range resolver.ExtractURLs(text) {
		if m, ok := s.dispatcher.Match(candidate); ok {
			return m, true
		}
	}
	return nil, false
}

// record persists one dispatch outcome. Persistence failures are logged
// and never surface to the caller.
func (s *ResolverService) record(text string, result *domain.ParseResult, dispatchErr error, latency time.Duration) {
	if s.history == nil {
		return
	}

	var rec *domain.ParseRecord
	switch {
	case dispatchErr == nil:
		rec = domain.NewParseRecord(result.URL, domain.OutcomeResolved)
		rec.Platform = result.Platform.Name
		rec.Title = result.Title
		rec.Contents = len(result.Contents)
	case errors.Is(dispatchErr, domain.ErrNoMatch):
		rec = domain.NewParseRecord(firstURL(text), domain.OutcomeNoMatch)
	default:
		var disabledErr *domain.PlatformDisabledError
		var extractionErr *domain.ExtractionError
		switch {
		case errors.As(dispatchErr, &disabledErr):
			rec = domain.NewParseRecord(firstURL(text), domain.OutcomeDisabled)
			rec.Platform = disabledErr.Platform.Name
		case errors.As(dispatchErr, &extractionErr):
			rec = domain.NewParseRecord(firstURL(text), domain.OutcomeFailed)
			rec.Platform = extractionErr.Platform.Name
		default:
			rec = domain.NewParseRecord(firstURL(text), domain.OutcomeFailed)
		}
		rec.Error = dispatchErr.Error()
	}
	rec.LatencyMS = latency.Milliseconds()

	if err := s.history.Create(rec); err != nil {
		s.logger.Warn("Failed to persist parse record",
			zap.String("url", rec.URL), zap.Error(err))
	}
}

// GetHistory returns the most recent parse records, optionally filtered
// by platform.
func (s *ResolverService) GetHistory(platform string, limit int) ([]*domain.ParseRecord, error) {
	if s.history == nil {
		return nil, errors.New("history is disabled")
	}
	if limit < 1 {
		limit = 20
	}
	if platform != "" {
		return s.history.FindByPlatform(platform, limit)
	}
	return s.history.FindRecent(limit)
}

// GetStats returns aggregate outcome counts.
func (s *ResolverService) GetStats() (*domain.ParseStats, error) {
	if s.history == nil {
		return nil, errors.New("history is disabled")
	}
	return s.history.GetStats()
}

// Platforms lists the registered platforms.
func (s *ResolverService) Platforms() []domain.Platform {
	return s.dispatcher.Platforms()
}

func firstURL(text string) string {
	urls := resolver.ExtractURLs(text)
	if len(urls) == 0 {
		return text
	}
	return urls[0]
}
