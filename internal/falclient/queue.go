package falclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rpriscu/ai-image-generator/internal/domain"
	"github.com/rpriscu/ai-image-generator/internal/handler"
	"github.com/rpriscu/ai-image-generator/internal/registry"
)

type queueSubmission struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type queueStatus struct {
	Status string `json:"status"`
}

// generateViaQueue is the direct-client strategy: submit to the fal queue,
// poll until completion, then fetch the response payload. The configured
// timeout bounds the whole operation, submission through final fetch.
func (c *Client) generateViaQueue(ctx context.Context, h handler.Handler, cfg registry.ModelConfig, payload handler.Payload, timeout time.Duration) ([]domain.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sub, err := c.submitQueue(ctx, cfg.Endpoint, payload)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Str("model", cfg.ID).Str("request_id", sub.RequestID).Msg("queued generation request")

	if err := c.awaitQueue(ctx, sub); err != nil {
		return nil, err
	}

	raw, err := c.fetchJSON(ctx, sub.ResponseURL)
	if err != nil {
		return nil, err
	}
	return h.ProcessResponse(raw)
}

func (c *Client) submitQueue(ctx context.Context, endpoint string, payload handler.Payload) (*queueSubmission, error) {
	raw, err := c.send(ctx, c.queueBaseURL, endpoint, payload, remainingTimeout(ctx))
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("falclient: re-encode queue response: %w", err)
	}
	var sub queueSubmission
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("falclient: decode queue submission: %w", err)
	}
	if sub.StatusURL == "" || sub.ResponseURL == "" {
		return nil, fmt.Errorf("falclient: queue submission missing status or response url")
	}
	return &sub, nil
}

func (c *Client) awaitQueue(ctx context.Context, sub *queueSubmission) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		raw, err := c.fetchJSON(ctx, sub.StatusURL)
		if err != nil {
			return err
		}
		var status queueStatus
		if s, ok := raw["status"].(string); ok {
			status.Status = s
		}
		switch strings.ToUpper(status.Status) {
		case "COMPLETED":
			return nil
		case "IN_QUEUE", "IN_PROGRESS", "":
		default:
			return fmt.Errorf("falclient: queue request %s ended with status %q", sub.RequestID, status.Status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchJSON(ctx context.Context, url string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("falclient: build request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("falclient: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("falclient: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseErrorBody(resp.StatusCode, raw)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("falclient: decode response: %w", err)
	}
	return decoded, nil
}

// remainingTimeout returns the time left on the context, so nested send calls
// do not extend the overall deadline.
func remainingTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left > 0 {
			return left
		}
		return time.Millisecond
	}
	return 30 * time.Second
}
