package falclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpriscu/ai-image-generator/internal/handler"
	"github.com/rpriscu/ai-image-generator/internal/registry"
)

func directModel() registry.ModelConfig {
	cfg := imageModel()
	cfg.ID = "stable_diffusion"
	cfg.Endpoint = "fal-ai/stable-diffusion"
	cfg.UseDirectClient = true
	return cfg
}

func TestGenerateViaQueue(t *testing.T) {
	var statusPolls int
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/fal-ai/stable-diffusion", func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Key secret-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"request_id":   "req-1",
			"status_url":   srv.URL + "/status/req-1",
			"response_url": srv.URL + "/response/req-1",
		})
	})
	mux.HandleFunc("/status/req-1", func(w http.ResponseWriter, r *http.Request) {
		statusPolls++
		status := "IN_PROGRESS"
		if statusPolls >= 2 {
			status = "COMPLETED"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": status})
	})
	mux.HandleFunc("/response/req-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(okImages("https://cdn/queued.png"))
	})

	c := NewClient(Options{
		APIKey:       "secret-key",
		BaseURL:      srv.URL,
		QueueBaseURL: srv.URL,
		PollInterval: time.Millisecond,
	})

	results, err := c.Generate(context.Background(), handler.New(directModel()), preparedText("a red fox"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].URL != "https://cdn/queued.png" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if statusPolls < 2 {
		t.Fatalf("expected at least 2 status polls, got %d", statusPolls)
	}
}

func TestGenerateFallsBackToRESTWhenQueueFails(t *testing.T) {
	var restCalls int
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	queueSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "queue down"})
	}))
	defer queueSrv.Close()

	mux.HandleFunc("/fal-ai/stable-diffusion", func(w http.ResponseWriter, r *http.Request) {
		restCalls++
		_ = json.NewEncoder(w).Encode(okImages("https://cdn/rest.png"))
	})

	c := NewClient(Options{
		APIKey:       "secret-key",
		BaseURL:      srv.URL,
		QueueBaseURL: queueSrv.URL,
		PollInterval: time.Millisecond,
	})

	results, err := c.Generate(context.Background(), handler.New(directModel()), preparedText("a red fox"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].URL != "https://cdn/rest.png" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if restCalls != 1 {
		t.Fatalf("expected one rest fallback call, got %d", restCalls)
	}
}

func TestQueueRejectsTerminalFailureStatus(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/fal-ai/stable-diffusion", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"request_id":   "req-2",
			"status_url":   srv.URL + "/status/req-2",
			"response_url": srv.URL + "/response/req-2",
		})
	})
	mux.HandleFunc("/status/req-2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "FAILED"})
	})

	c := NewClient(Options{
		APIKey:       "secret-key",
		QueueBaseURL: srv.URL,
		PollInterval: time.Millisecond,
	})

	cfg := directModel()
	_, err := c.generateViaQueue(context.Background(), handler.New(cfg), cfg, handler.Payload{"prompt": "x"}, time.Second)
	if err == nil {
		t.Fatal("expected terminal status error")
	}
}
