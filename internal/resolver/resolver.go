// Package resolver turns free-form channel references (canonical ids, channel
// URLs, custom names, handles) into canonical channel ids.
package resolver

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/crawler"
	"github.com/JakeFAU/tubescout/internal/youtube"
)

const handleSearchResults = 10

var (
	canonicalID = regexp.MustCompile(`^UC[a-zA-Z0-9_-]{22}$`)

	// Order matters: the first pattern that matches wins.
	urlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:www\.)?youtube\.com/channel/([a-zA-Z0-9_-]{24})`),
		regexp.MustCompile(`(?:www\.)?youtube\.com/c/([a-zA-Z0-9_-]+)`),
		regexp.MustCompile(`(?:www\.)?youtube\.com/user/([a-zA-Z0-9_-]+)`),
		regexp.MustCompile(`(?:www\.)?youtube\.com/@([a-zA-Z0-9_.-]+)`),
	}
)

// Lookup is the subset of the platform client used for handle resolution.
type Lookup interface {
	ChannelIDForHandle(ctx context.Context, handle string) (string, bool, error)
	SearchHandle(ctx context.Context, handle string, maxResults int64) ([]youtube.SearchHit, error)
	ChannelIDForUsername(ctx context.Context, username string) (string, bool, error)
}

// Resolver maps user input to canonical channel ids.
type Resolver struct {
	lookup Lookup
	cache  crawler.HandleCache
	logger *zap.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithCache consults and populates cache around handle lookups.
func WithCache(cache crawler.HandleCache) Option {
	return func(r *Resolver) {
		r.cache = cache
	}
}

// New constructs a Resolver.
func New(lookup Lookup, logger *zap.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{lookup: lookup, logger: logger.Named("resolver")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsCanonicalID reports whether s already has the canonical channel id shape.
func IsCanonicalID(s string) bool {
	return canonicalID.MatchString(s)
}

// Extract returns the identifying segment of input without any network calls.
// direct is true when the segment is already a canonical id.
func Extract(input string) (segment string, direct bool, ok bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false, false
	}
	if IsCanonicalID(input) {
		return input, true, true
	}
	for _, p := range urlPatterns {
		m := p.FindStringSubmatch(input)
		if m == nil {
			continue
		}
		seg := m[1]
		if strings.HasPrefix(seg, "UC") && len(seg) == 24 {
			return seg, true, true
		}
		return strings.TrimPrefix(seg, "@"), false, true
	}
	return "", false, false
}

// Resolve returns the canonical id for input. ok is false when nothing matched.
// Quota exhaustion aborts immediately with an error wrapping crawler.ErrQuotaExceeded.
func (r *Resolver) Resolve(ctx context.Context, input string) (string, bool, error) {
	segment, direct, ok := Extract(input)
	if !ok {
		return "", false, nil
	}
	if direct {
		return segment, true, nil
	}
	return r.ResolveHandle(ctx, segment)
}

// ResolveHandle runs the handle strategies in order: direct handle lookup,
// "@handle" search, then legacy username lookup.
func (r *Resolver) ResolveHandle(ctx context.Context, handle string) (string, bool, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return "", false, nil
	}
	if id, ok := r.cached(ctx, handle); ok {
		return id, true, nil
	}

	strategies := []struct {
		name string
		run  func(context.Context, string) (string, bool, error)
	}{
		{"for_handle", r.lookup.ChannelIDForHandle},
		{"search", r.searchHandle},
		{"for_username", r.lookup.ChannelIDForUsername},
	}
	for _, s := range strategies {
		id, found, err := s.run(ctx, handle)
		if err != nil {
			if errors.Is(err, crawler.ErrQuotaExceeded) {
				r.logger.Warn("quota exceeded during handle resolution",
					zap.String("handle", handle), zap.String("strategy", s.name))
				return "", false, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", false, ctxErr
			}
			r.logger.Warn("handle strategy failed",
				zap.String("handle", handle), zap.String("strategy", s.name), zap.Error(err))
			continue
		}
		if found && id != "" {
			r.remember(ctx, handle, id)
			return id, true, nil
		}
	}
	return "", false, nil
}

func (r *Resolver) searchHandle(ctx context.Context, handle string) (string, bool, error) {
	hits, err := r.lookup.SearchHandle(ctx, handle, handleSearchResults)
	if err != nil {
		return "", false, err
	}
	id := pickHit(hits, handle)
	return id, id != "", nil
}

// pickHit prefers an exact custom URL match, then a title containing the
// handle, then the first hit.
func pickHit(hits []youtube.SearchHit, handle string) string {
	if len(hits) == 0 {
		return ""
	}
	want := strings.ToLower(strings.ReplaceAll(handle, "@", ""))
	for _, h := range hits {
		if h.CustomURL == "" {
			continue
		}
		if strings.ToLower(strings.ReplaceAll(h.CustomURL, "@", "")) == want {
			return h.ChannelID
		}
	}
	for _, h := range hits {
		if strings.Contains(strings.ToLower(h.Title), want) {
			return h.ChannelID
		}
	}
	return hits[0].ChannelID
}

func (r *Resolver) cached(ctx context.Context, handle string) (string, bool) {
	if r.cache == nil {
		return "", false
	}
	id, ok, err := r.cache.Get(ctx, cacheKey(handle))
	if err != nil {
		r.logger.Warn("handle cache read failed", zap.String("handle", handle), zap.Error(err))
		return "", false
	}
	return id, ok && id != ""
}

func (r *Resolver) remember(ctx context.Context, handle, id string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey(handle), id); err != nil {
		r.logger.Warn("handle cache write failed", zap.String("handle", handle), zap.Error(err))
	}
}

func cacheKey(handle string) string {
	return strings.ToLower(handle)
}
