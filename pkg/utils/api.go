package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// ErrDecode marks a response that arrived but could not be decoded.
var ErrDecode = errors.New("decode response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

type API struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

type Option func(*API)

func WithClient(c *http.Client) Option {
	return func(a *API) { a.client = c }
}

// WithLimiter throttles every request through l.
func WithLimiter(l *rate.Limiter) Option {
	return func(a *API) { a.limiter = l }
}

func NewAPI(baseURL string, opts ...Option) *API {
	a := &API{client: http.DefaultClient, baseURL: strings.TrimRight(baseURL, "/")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *API) BaseURL() string {
	return a.baseURL
}

// Get fetches baseURL+path and decodes the JSON body into v.
func (a *API) Get(ctx context.Context, path string, params url.Values, v any) error {
	if params != nil {
		path += "?" + params.Encode()
	}
	body, _, err := a.Fetch(ctx, a.baseURL+path, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// Fetch GETs an absolute URL and returns the body and the response content type.
func (a *API) Fetch(ctx context.Context, rawURL, accept string) ([]byte, string, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
