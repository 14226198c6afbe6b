package modelserving

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/pkg/errors"
)

// httpClient is the shared transport for the tagger, embedder and LLM
// clients.  Retries are bounded, exponential with jitter, and only applied
// to network failures and 5xx responses.
type httpClient struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	logger       logging.Logger
}

func newHTTPClient(baseURL, apiKey string, timeout time.Duration, retryMax int, logger logging.Logger) (*httpClient, error) {
	if baseURL == "" {
		return nil, errors.New(errors.ErrCodeBadRequest, "modelserving: base URL is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if retryMax < 0 {
		retryMax = 0
	}
	return &httpClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       apiKey,
		client:       &http.Client{Timeout: timeout},
		retryMax:     retryMax,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
		logger:       logger,
	}, nil
}

// post sends a JSON body and decodes the JSON response into result.
func (c *httpClient) post(ctx context.Context, path string, body, result interface{}) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fullURL := c.baseURL + path

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "modelserving: marshal request body")
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			c.logger.Debug("retrying model serving request",
				logging.String("path", path),
				logging.Int("attempt", attempt),
				logging.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(bodyBytes))
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeExternalService, "modelserving: build request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", uuid.New().String())
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = errors.Wrap(err, errors.ErrCodeExternalService, "modelserving: request failed")
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeExternalService, "modelserving: read response body")
		}

		if resp.StatusCode >= 500 {
			lastErr = errors.New(errors.ErrCodeExternalService,
				fmt.Sprintf("modelserving: %s returned %d", path, resp.StatusCode))
			continue
		}
		if resp.StatusCode >= 400 {
			return errors.New(errors.ErrCodeExternalService,
				fmt.Sprintf("modelserving: %s returned %d: %s", path, resp.StatusCode, truncate(respBody, 256)))
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return errors.Wrap(err, errors.ErrCodeSerialization, "modelserving: decode response")
			}
		}
		return nil
	}
	return lastErr
}

func (c *httpClient) backoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}
	jitter := time.Duration(rand.Int63n(int64(backoff/4) + 1))
	return backoff + jitter
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
