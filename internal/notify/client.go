package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Client posts events to a webhook URL.
type Client struct {
	url     string
	http    *fasthttp.Client
	headers map[string]string

	timeout  time.Duration
	retryMax int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithHeader(key, value string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" && strings.TrimSpace(value) != "" {
			c.headers[key] = value
		}
	}
}

// WithDial replaces the transport dialer, mainly for in-memory listeners.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:      strings.TrimSpace(url),
		http:     &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		headers:  map[string]string{},
		timeout:  10 * time.Second,
		retryMax: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post sends ev as JSON. 5xx responses and transport errors are retried with
// exponential backoff; 4xx responses fail immediately.
func (c *Client) Post(ctx context.Context, ev Event) error {
	if c == nil || c.url == "" {
		return errors.New("webhook not configured")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.url)
	req.Header.SetContentType("application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	req.SetBody(payload)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.http.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
			lastErr = fmt.Errorf("post event: %w", err)
		} else {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				return nil
			}
			lastErr = fmt.Errorf("webhook status=%d body=%s", status, truncate(string(resp.Body()), 256))
			if !retryable(status) {
				return lastErr
			}
		}
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, backoff(attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) deadline(ctx context.Context) time.Time {
	limit := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(limit) {
		return dl
	}
	return limit
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff yields 100ms, 200ms, 400ms ... capped at 3.2s.
func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func retryable(code int) bool {
	switch code {
	case fasthttp.StatusInternalServerError, fasthttp.StatusBadGateway,
		fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
