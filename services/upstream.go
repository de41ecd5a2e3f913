package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

type HTTPError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

type upstreamOption func(*upstreamClient)

func withHeader(key, value string) upstreamOption {
	return func(c *upstreamClient) {
		c.headers[key] = value
	}
}

func withRetries(retries uint64, initial time.Duration) upstreamOption {
	return func(c *upstreamClient) {
		c.retries = retries
		c.initialInterval = initial
	}
}

func withTimeout(timeout time.Duration) upstreamOption {
	return func(c *upstreamClient) {
		c.httpClient.Timeout = timeout
	}
}

// upstreamClient is a JSON client for one third-party API with exponential retry on transient failures.
type upstreamClient struct {
	name            string
	baseURL         string
	httpClient      *http.Client
	headers         map[string]string
	retries         uint64
	initialInterval time.Duration
	log             *zap.Logger
}

func newUpstreamClient(name, baseURL string, log *zap.Logger, opts ...upstreamOption) *upstreamClient {
	if log == nil {
		log = zap.NewNop()
	}
	c := &upstreamClient{
		name:       name,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		retries:         2,
		initialInterval: 200 * time.Millisecond,
		log:             log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// do sends the request and decodes a JSON response into out when out is non-nil.
func (c *upstreamClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	fullURL := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s request: %w", c.name, err)
		}
	}

	start := time.Now()
	var respBody []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		for key, value := range c.headers {
			req.Header.Set(key, value)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 400 {
			httpErr := &HTTPError{StatusCode: resp.StatusCode, Method: method, URL: fullURL, Body: string(data)}
			if retryableStatus[resp.StatusCode] {
				return httpErr
			}
			return backoff.Permanent(httpErr)
		}
		respBody = data
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval
	policy.MaxElapsedTime = 30 * time.Second
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, c.retries), ctx))
	if err != nil {
		c.log.Warn("upstream request failed",
			zap.String("upstream", c.name),
			zap.String("method", method),
			zap.String("url", fullURL),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return err
	}

	c.log.Debug("upstream request succeeded",
		zap.String("upstream", c.name),
		zap.String("method", method),
		zap.String("url", fullURL),
		zap.Duration("duration", time.Since(start)))

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.name, err)
	}
	return nil
}
