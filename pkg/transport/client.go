package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ====================================================================================
// This file contains the HTTP client used by every remote call in the archiver.
// The client issues single GET requests and never retries internally: retry
// policy belongs to the callers, which need to distinguish a non-2xx response
// from a network-level failure to decide between retry, skip, and abort.
// ====================================================================================

// StatusError reports a response with a non-2xx status code. Network failures
// are returned as ordinary wrapped errors, so callers can separate the two
// cases with errors.As.
type StatusError struct {
	Code   int
	Status string
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s for %s", e.Status, e.URL)
}

// Config holds the tunables for the transport client.
type Config struct {
	// RequestTimeout bounds metadata (JSON) requests end to end.
	// Payload streams are exempt: a whole-request timeout would cut off
	// large bodies mid-copy.
	RequestTimeout time.Duration
	// MaxIdleConnsPerHost sets the connection pool size per host.
	MaxIdleConnsPerHost int
}

// Client issues GET requests against the metadata API and the download host.
type Client struct {
	jsonClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a transport client. Zero config fields fall back to
// sensible defaults (30s request timeout, 10 idle conns per host).
func NewClient(config Config) *Client {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if config.MaxIdleConnsPerHost <= 0 {
		config.MaxIdleConnsPerHost = 10
	}

	httpTransport := &http.Transport{
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		MaxIdleConns:        config.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		jsonClient: &http.Client{
			Transport: httpTransport,
			Timeout:   config.RequestTimeout,
		},
		streamClient: &http.Client{
			Transport: httpTransport,
		},
	}
}

// GetJSON performs a single GET and returns the full response body.
func (c *Client) GetJSON(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.do(ctx, c.jsonClient, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body from %s: %w", url, err)
	}
	return body, nil
}

// GetStream performs a single GET and returns the response body as a stream.
// The caller owns the returned ReadCloser.
func (c *Client) GetStream(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, c.streamClient, url)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: url}
	}
	return resp, nil
}
