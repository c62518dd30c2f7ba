package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// maxResponseBytes caps how much of a platform response is read (10 MiB)
const maxResponseBytes = 10 << 20

const maxRequestAttempts = 4

// APIError is a non-2xx platform response that is not worth retrying
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform API returned %d: %s", e.Status, e.Body)
}

// platformClient is the HTTP layer shared by all connectors. It retries
// 429/5xx responses with exponential backoff, honors Retry-After, and caps
// response bodies.
type platformClient struct {
	hc *http.Client
}

func newPlatformClient(hc *http.Client) *platformClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &platformClient{hc: hc}
}

// doJSON executes a request and decodes the response into out (when out is
// non-nil). The returned headers carry pagination state (Shopify Link).
func (c *platformClient) doJSON(ctx context.Context, method, url string, headers map[string]string, payload, out interface{}) (http.Header, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
	}

	operation := func() (http.Header, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			if seconds := retryAfterSeconds(resp.Header); seconds > 0 {
				return nil, backoff.RetryAfter(seconds)
			}
			return nil, &APIError{Status: resp.StatusCode, Body: truncate(data)}
		case resp.StatusCode >= 500:
			return nil, &APIError{Status: resp.StatusCode, Body: truncate(data)}
		case resp.StatusCode >= 400:
			return nil, backoff.Permanent(&APIError{Status: resp.StatusCode, Body: truncate(data)})
		}

		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return nil, backoff.Permanent(fmt.Errorf("decoding platform response: %w", err))
			}
		}
		return resp.Header, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxRequestAttempts))
}

func retryAfterSeconds(header http.Header) int {
	raw := header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}

func truncate(data []byte) string {
	const max = 512
	if len(data) > max {
		return string(data[:max])
	}
	return string(data)
}
