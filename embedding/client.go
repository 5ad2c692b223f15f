package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// httpClient is the shared transport for every Ollama-backed capability.
// Retries use an exponential backoff identical in shape to the chat
// provider's hand-rolled loop, but delegated to backoff/v4 so the retry
// policy is declared, not looped.
type httpClient struct {
	cfg    Config
	client *http.Client
}

func newHTTPClient(cfg Config) *httpClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	return &httpClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

// permanentHTTPError wraps a non-retryable HTTP failure so backoff.Retry
// stops immediately instead of exhausting its schedule.
type permanentHTTPError struct{ err error }

func (e *permanentHTTPError) Error() string { return e.err.Error() }
func (e *permanentHTTPError) Unwrap() error { return e.err }

func (c *httpClient) doPost(ctx context.Context, path string, body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := c.cfg.BaseURL + path

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 2 * time.Second
	expBackoff.MaxInterval = 40 * time.Second
	expBackoff.MaxElapsedTime = 2 * time.Minute
	policy := backoff.WithContext(expBackoff, ctx)

	var respBody []byte
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("request to %s failed: %w", url, err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response body: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return nil
		}

		httpErr := fmt.Errorf("embedding endpoint %s returned %d: %s", url, resp.StatusCode, string(respBody))
		if !retryableStatus(resp.StatusCode) {
			return backoff.Permanent(&permanentHTTPError{err: httpErr})
		}
		if attempt > 1 {
			slog.Warn("embedding: retrying request", "url", url, "attempt", attempt, "status", resp.StatusCode)
		}
		return httpErr
	}

	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return respBody, nil
}
