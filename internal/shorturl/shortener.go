// Package shorturl maps oversized asset URLs to compact keys so they fit
// storage column limits. The persisted store is the authority; an in-process
// cache covers brief storage outages and is never treated as durable.
package shorturl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rpriscu/ai-image-generator/internal/infra"
)

const (
	// LengthThreshold is the longest URL stored verbatim; anything longer is
	// shortened to respect the 255-character asset column.
	LengthThreshold = 255

	// PathPrefix is prepended to short keys when building the public path.
	PathPrefix = "/video/"
)

// Shortener shortens and resolves asset URLs.
type Shortener struct {
	store  Store
	logger *infra.Logger
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]string
}

// Option adjusts a Shortener. Used by tests to pin the clock.
type Option func(*Shortener)

// WithClock overrides the timestamp source for short key generation.
func WithClock(now func() time.Time) Option {
	return func(s *Shortener) { s.now = now }
}

// New builds a shortener. store may be nil, in which case every mapping lives
// in the in-process cache only.
func New(store Store, logger *infra.Logger, opts ...Option) *Shortener {
	if logger == nil {
		logger = infra.NopLogger()
	}
	s := &Shortener{
		store:  store,
		logger: logger,
		now:    time.Now,
		cache:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Shorten returns the URL unchanged when it fits the threshold or is already
// a short path; otherwise it persists a mapping and returns the short path.
// Shortening happens at most once per URL value, never recursively.
func (s *Shortener) Shorten(ctx context.Context, url string) string {
	if len(url) <= LengthThreshold {
		return url
	}
	if strings.HasPrefix(url, PathPrefix) {
		return url
	}

	key := shortKey(url, s.now())
	if s.store != nil {
		if err := s.store.SaveMapping(ctx, key, url); err != nil {
			s.logger.Warn().Err(err).Str("short_key", key).Msg("short url store unavailable, using cache")
			s.saveToCache(key, url)
		}
	} else {
		s.saveToCache(key, url)
	}
	return PathPrefix + key
}

// Resolve looks a short key up, storage first, then the degraded cache.
func (s *Shortener) Resolve(ctx context.Context, key string) (string, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	if s.store != nil {
		url, err := s.store.Resolve(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Str("short_key", key).Msg("short url store lookup failed")
		} else if url != "" {
			return url, true
		}
	}
	s.mu.RLock()
	url, ok := s.cache[key]
	s.mu.RUnlock()
	return url, ok
}

// CleanupOlderThan deletes persisted mappings older than maxAge.
func (s *Shortener) CleanupOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	if s.store == nil {
		return 0, nil
	}
	return s.store.DeleteOlderThan(ctx, s.now().Add(-maxAge))
}

func (s *Shortener) saveToCache(key, url string) {
	s.mu.Lock()
	// Latest write wins on the rare key collision.
	s.cache[key] = url
	s.mu.Unlock()
}

// shortKey derives a compact key from a content hash of the URL plus a
// timestamp salt. Not cryptographically unique; collisions are tolerated by
// the latest-write-wins cache and the store upsert.
func shortKey(url string, now time.Time) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:8]) + "_" + strconv.FormatInt(now.Unix(), 10)
}
