package shorturl

import (
	"context"
	"fmt"
	"time"

	"github.com/rpriscu/ai-image-generator/internal/domain"
	"github.com/rpriscu/ai-image-generator/internal/infra"
	"github.com/rpriscu/ai-image-generator/internal/sqlinline"
)

// Store persists short-key mappings. The Postgres implementation is the
// authority; the shortener only falls back to its cache when a Store call
// fails.
type Store interface {
	SaveMapping(ctx context.Context, shortKey, url string) error
	Resolve(ctx context.Context, shortKey string) (string, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PGStore implements Store on top of the SQL runner. Infrastructure failures
// wrap domain.ErrStorageUnavailable so callers can distinguish an outage from
// a missing key.
type PGStore struct {
	sql infra.SQLExecutor
}

func NewPGStore(sql infra.SQLExecutor) *PGStore {
	return &PGStore{sql: sql}
}

// EnsureSchema creates the short_urls table when it does not exist yet.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := s.sql.Exec(ctx, sqlinline.QCreateShortURLsTable)
	return err
}

// SaveMapping upserts the mapping; a colliding key is overwritten,
// latest write wins.
func (s *PGStore) SaveMapping(ctx context.Context, shortKey, url string) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertShortURL, shortKey, url); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Resolve returns the original URL for the key. A missing key yields an
// empty string with a nil error; only infrastructure failures error out.
func (s *PGStore) Resolve(ctx context.Context, shortKey string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectShortURL, shortKey)
	var url string
	if err := row.Scan(&url); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return url, nil
}

// DeleteOlderThan removes mappings created before the cutoff and returns the
// number of rows deleted.
func (s *PGStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.sql.Exec(ctx, sqlinline.QDeleteShortURLsOlderThan, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return tag.RowsAffected(), nil
}

var _ Store = (*PGStore)(nil)
