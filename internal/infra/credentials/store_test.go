package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) > 0 {
		if p, ok := dest[0].(*string); ok {
			*p = r.token
		}
	}
	return nil
}

type stubExecutor struct {
	row       stubRow
	execErr   error
	execCalls int
	lastQuery string
	lastArgs  []any
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.execCalls++
	s.lastQuery = query
	s.lastArgs = args
	return pgconn.CommandTag{}, s.execErr
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.lastQuery = query
	s.lastArgs = args
	return s.row
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func TestTokenPrefersStoredValue(t *testing.T) {
	exec := &stubExecutor{row: stubRow{token: " db-key "}}
	store := NewStore(exec, map[string]string{ProviderFal: "env-key"})

	got, err := store.FalAPIKey(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "db-key" {
		t.Fatalf("expected stored key, got %q", got)
	}
}

func TestTokenFallsBackToEnv(t *testing.T) {
	exec := &stubExecutor{row: stubRow{err: pgx.ErrNoRows}}
	store := NewStore(exec, map[string]string{ProviderFal: "env-key"})

	got, err := store.FalAPIKey(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "env-key" {
		t.Fatalf("expected env key, got %q", got)
	}
}

func TestTokenWithoutDatabase(t *testing.T) {
	store := NewStore(nil, map[string]string{ProviderFal: "env-key"})

	got, err := store.FalAPIKey(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "env-key" {
		t.Fatalf("expected env key, got %q", got)
	}

	empty := NewStore(nil, nil)
	got, err = empty.FalAPIKey(context.Background())
	if err != nil || got != "" {
		t.Fatalf("absent key should be empty, not an error: %q %v", got, err)
	}
}

func TestTokenPropagatesQueryErrors(t *testing.T) {
	exec := &stubExecutor{row: stubRow{err: errors.New("connection reset")}}
	store := NewStore(exec, map[string]string{ProviderFal: "env-key"})

	if _, err := store.FalAPIKey(context.Background()); err == nil {
		t.Fatal("expected query error")
	}
}

func TestSetFalAPIKey(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec, nil)

	if err := store.SetFalAPIKey(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank key")
	}
	if err := store.SetFalAPIKey(context.Background(), "new-key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.execCalls != 1 {
		t.Fatalf("expected one upsert, got %d", exec.execCalls)
	}
	if len(exec.lastArgs) < 2 || exec.lastArgs[0] != ProviderFal || exec.lastArgs[1] != "new-key" {
		t.Fatalf("unexpected upsert args: %v", exec.lastArgs)
	}
}
