// Package credentials resolves provider API keys. Keys can be rotated in the
// database without a redeploy; the environment value acts as the fallback.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rpriscu/ai-image-generator/internal/infra"
	"github.com/rpriscu/ai-image-generator/internal/sqlinline"
)

const (
	ProviderFal = "fal"
)

type Store struct {
	sql infra.SQLExecutor
	env map[string]string
}

// NewStore wires a credential store over the SQL executor. envFallback maps
// provider name to the key taken from the environment.
func NewStore(sql infra.SQLExecutor, envFallback map[string]string) *Store {
	return &Store{sql: sql, env: envFallback}
}

// FalAPIKey returns the fal.ai key, preferring the database-managed value.
func (s *Store) FalAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderFal)
}

// Token resolves the key for a provider. A missing row falls back to the
// environment value; both absent yields an empty string, not an error.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	if s.sql != nil {
		row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
		var token string
		err := row.Scan(&token)
		switch {
		case err == nil:
			if token = strings.TrimSpace(token); token != "" {
				return token, nil
			}
		case !infra.IsNoRows(err):
			return "", err
		}
	}
	return strings.TrimSpace(s.env[provider]), nil
}

// SetFalAPIKey stores a rotated fal.ai key.
func (s *Store) SetFalAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("fal api key is required")
	}
	return s.upsert(ctx, ProviderFal, key, nil)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	if s.sql == nil {
		return errors.New("credentials: no database configured")
	}
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
