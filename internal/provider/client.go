package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxErrorBody = 512

// jsonClient is the HTTP plumbing shared by the feed, safety and enrichment
// providers.
type jsonClient struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
	limiter *RateLimiter
}

func newJSONClient(baseURL string, timeout time.Duration, maxPerMinute int) jsonClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return jsonClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		timeout: timeout,
		limiter: NewPerMinuteLimiter(maxPerMinute),
	}
}

// addressURL builds <base>/<address>.
func (c jsonClient) addressURL(address string) string {
	return strings.TrimRight(c.baseURL, "/") + "/" + url.PathEscape(address)
}

// getJSON performs one GET and decodes the body into out.
func (c jsonClient) getJSON(ctx context.Context, rawURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit wait: %v", ErrTransport, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}
