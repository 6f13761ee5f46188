package resolver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/link-resolve-go/internal/domain"
)

// Dispatcher maps free-text messages to a matched handler invocation.
// Only the first successfully matched candidate URL in a message is
// processed; dispatch never falls back to a second candidate after a
// handler failure.
type Dispatcher struct {
	registry *Registry
	cfg      domain.ResolverConfig
	redirect *redirectResolver
	disabled map[string]struct{}
	short    map[string]struct{}
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher over a built registry and attaches
// itself to the shared parser environment so handlers can re-enter the
// redirect chase through Base.ParseWithRedirect.
func NewDispatcher(env *Env, registry *Registry, cfg domain.ResolverConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RedirectHops < 1 {
		cfg.RedirectHops = 5
	}

	disabled := make(map[string]struct{}, len(cfg.DisabledPlatforms))
	for _, name := range cfg.DisabledPlatforms {
		disabled[name] = struct{}{}
	}

	short := make(map[string]struct{}, len(cfg.ShortDomains))
	for _, host := range cfg.ShortDomains {
		short[host] = struct{}{}
	}

	var base *http.Client
	if env != nil {
		base = env.Client
	}

	d := &Dispatcher{
		registry: registry,
		cfg:      cfg,
		redirect: newRedirectResolver(base),
		disabled: disabled,
		short:    short,
		logger:   logger,
	}
	if env != nil {
		env.dispatcher = d
	}
	return d
}

// Dispatch extracts URL candidates from the text, matches them against
// the registry (chasing redirects for unmatched candidates) and invokes
// the owning handler of the first match. Every input maps to a defined
// outcome: a result, domain.ErrNoMatch, a PlatformDisabledError or an
// ExtractionError.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) (*domain.ParseResult, error) {
	if d.cfg.ParseTimeout > 0 {
		// Not cancelled on return: download tasks spawned by the handler
		// hold this context after Dispatch returns and are materialized
		// by the caller. The deadline alone bounds them.
		ctx = deadlineContext(ctx, d.cfg.ParseTimeout)
	}

	candidates := ExtractURLs(text)
	if len(candidates) == 0 {
		return nil, domain.ErrNoMatch
	}

	for _, candidate := range candidates {
		var (
			m  *Match
			ok bool
		)
		if d.isShortDomain(candidate) {
			// Known short-link hosts never match a pattern directly;
			// skip the lookup and chase immediately.
			m, ok = d.chase(ctx, candidate)
		} else if m, ok = d.registry.Match(candidate); !ok {
			m, ok = d.chase(ctx, candidate)
		}
		if !ok {
			continue
		}

		if _, off := d.disabled[m.Platform.Name]; off {
			d.logger.Info("Platform disabled, skipping handler",
				zap.String("platform", m.Platform.Name),
				zap.String("url", m.URL))
			return nil, &domain.PlatformDisabledError{Platform: m.Platform}
		}

		d.logger.Info("Dispatching URL",
			zap.String("platform", m.Platform.Name),
			zap.String("url", m.URL))
		return d.invoke(ctx, m)
	}

	return nil, domain.ErrNoMatch
}

// chase resolves redirects for an unmatched candidate, re-running the
// registry match after each hop. Termination: match found, non-redirect
// response, or hop limit reached, whichever comes first. Exceeding the
// limit is a normal no-match outcome, not an error.
func (d *Dispatcher) chase(ctx context.Context, rawURL string) (*Match, bool) {
	current := rawURL
	for hop := 0; hop < d.cfg.RedirectHops; hop++ {
		next, err := d.redirect.resolveOnce(ctx, current, CommonHeaders())
		if err != nil {
			d.logger.Debug("Redirect resolution failed",
				zap.String("url", current), zap.Error(err))
			return nil, false
		}
		if next == current {
			return nil, false
		}
		d.logger.Debug("Redirect hop",
			zap.String("from", current), zap.String("to", next), zap.Int("hop", hop+1))

		if m, ok := d.registry.Match(next); ok {
			return m, true
		}
		current = next
	}
	return nil, false
}

// invoke runs the matched handler, converting any failure into a typed
// ExtractionError. A panicking handler degrades to the same outcome
// rather than crashing the dispatch.
func (d *Dispatcher) invoke(ctx context.Context, m *Match) (result *domain.ParseResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Handler panic recovered",
				zap.String("platform", m.Platform.Name),
				zap.Any("panic", r))
			result = nil
			err = domain.NewExtractionError(m.Platform, "handler panic: %v", r)
		}
	}()

	result, err = m.handle(ctx, m)
	if err != nil {
		var extractionErr *domain.ExtractionError
		if errors.As(err, &extractionErr) {
			return nil, err
		}
		return nil, &domain.ExtractionError{Platform: m.Platform, Cause: err}
	}
	if result == nil {
		return nil, domain.NewExtractionError(m.Platform, "handler returned no result")
	}

	result.ApplyBundleThreshold(d.cfg.BundleThreshold)
	return result, nil
}

// Match exposes registry matching for callers that hold a bare URL
func (d *Dispatcher) Match(rawURL string) (*Match, bool) {
	return d.registry.Match(rawURL)
}

// Platforms returns the registered platforms
func (d *Dispatcher) Platforms() []domain.Platform {
	return d.registry.Platforms()
}

// Disabled reports whether a platform is in the disabled set
func (d *Dispatcher) Disabled(name string) bool {
	_, off := d.disabled[name]
	return off
}

// isShortDomain reports whether the candidate's host is in the
// configured short-link set
func (d *Dispatcher) isShortDomain(rawURL string) bool {
	_, ok := d.short[hostOf(rawURL)]
	return ok
}

// deadlineContext bounds ctx with a deadline whose resources are
// released when the timer fires rather than when the caller returns.
func deadlineContext(ctx context.Context, d time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(ctx, d)
	time.AfterFunc(d, cancel)
	return ctx
}
