package shorturl

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubStore struct {
	saved    map[string]string
	saveErr  error
	lookupEr error
	deleted  int64
	cutoffs  []time.Time
}

func newStubStore() *stubStore {
	return &stubStore{saved: make(map[string]string)}
}

func (s *stubStore) SaveMapping(ctx context.Context, shortKey, url string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved[shortKey] = url
	return nil
}

func (s *stubStore) Resolve(ctx context.Context, shortKey string) (string, error) {
	if s.lookupEr != nil {
		return "", s.lookupEr
	}
	return s.saved[shortKey], nil
}

func (s *stubStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.deleted, nil
}

func longURL() string {
	return "https://v3.fal.media/files/generated/" + strings.Repeat("x", 300) + ".mp4"
}

func TestShortenPassesShortURLsThrough(t *testing.T) {
	s := New(newStubStore(), nil)
	url := "https://cdn/clip.mp4"
	if got := s.Shorten(context.Background(), url); got != url {
		t.Fatalf("short url was rewritten: %q", got)
	}
}

func TestShortenRoundTrip(t *testing.T) {
	store := newStubStore()
	s := New(store, nil, WithClock(func() time.Time { return time.Unix(1700000000, 0) }))

	url := longURL()
	short := s.Shorten(context.Background(), url)
	if !strings.HasPrefix(short, PathPrefix) {
		t.Fatalf("expected %q prefix, got %q", PathPrefix, short)
	}
	if len(short) > LengthThreshold {
		t.Fatalf("short path still exceeds threshold: %d", len(short))
	}

	key := strings.TrimPrefix(short, PathPrefix)
	if !strings.HasSuffix(key, "_1700000000") {
		t.Fatalf("key missing timestamp suffix: %q", key)
	}
	if store.saved[key] != url {
		t.Fatal("mapping not persisted")
	}

	resolved, ok := s.Resolve(context.Background(), key)
	if !ok || resolved != url {
		t.Fatalf("resolve failed: %q %v", resolved, ok)
	}
}

func TestShortenNeverShortensTwice(t *testing.T) {
	s := New(newStubStore(), nil)
	short := s.Shorten(context.Background(), longURL())

	// A second pass over an already-short path must be a no-op even if the
	// path were somehow over the threshold.
	padded := short + "?" + strings.Repeat("p", 300)
	if got := s.Shorten(context.Background(), padded); got != padded {
		t.Fatalf("short path was shortened again: %q", got)
	}
}

func TestShortenFallsBackToCacheOnStoreError(t *testing.T) {
	store := newStubStore()
	store.saveErr = errors.New("connection refused")
	s := New(store, nil)

	url := longURL()
	short := s.Shorten(context.Background(), url)
	key := strings.TrimPrefix(short, PathPrefix)

	store.saveErr = nil
	resolved, ok := s.Resolve(context.Background(), key)
	if !ok || resolved != url {
		t.Fatalf("cache fallback failed: %q %v", resolved, ok)
	}
}

func TestResolveUnknownKey(t *testing.T) {
	s := New(newStubStore(), nil)
	if _, ok := s.Resolve(context.Background(), "missing_123"); ok {
		t.Fatal("unknown key resolved")
	}
	if _, ok := s.Resolve(context.Background(), "  "); ok {
		t.Fatal("blank key resolved")
	}
}

func TestCacheOnlyMode(t *testing.T) {
	s := New(nil, nil)
	url := longURL()
	short := s.Shorten(context.Background(), url)
	key := strings.TrimPrefix(short, PathPrefix)

	resolved, ok := s.Resolve(context.Background(), key)
	if !ok || resolved != url {
		t.Fatalf("cache-only resolve failed: %q %v", resolved, ok)
	}
}

func TestCleanupOlderThan(t *testing.T) {
	store := newStubStore()
	store.deleted = 3
	now := time.Unix(1700000000, 0)
	s := New(store, nil, WithClock(func() time.Time { return now }))

	removed, err := s.CleanupOlderThan(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	if len(store.cutoffs) != 1 || !store.cutoffs[0].Equal(now.Add(-24*time.Hour)) {
		t.Fatalf("unexpected cutoff: %v", store.cutoffs)
	}

	cacheOnly := New(nil, nil)
	if removed, err := cacheOnly.CleanupOlderThan(context.Background(), time.Hour); err != nil || removed != 0 {
		t.Fatalf("cache-only cleanup: removed=%d err=%v", removed, err)
	}
}
