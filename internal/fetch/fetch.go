// Package fetch downloads remote package files over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ErrTooManyRedirects is returned when the server redirects more than once.
var ErrTooManyRedirects = errors.New("fetch: too many redirects")

// Option configures a request.
type Option func(*config)

type config struct {
	client  *http.Client
	headers http.Header
	ctx     context.Context
}

// WithClient sets the HTTP client used for the request. The client's
// CheckRedirect policy is replaced with the single-redirect cap.
func WithClient(client *http.Client) Option {
	return func(c *config) {
		c.client = client
	}
}

// WithHeader sets a single header on the request.
func WithHeader(key, value string) Option {
	return func(c *config) {
		if c.headers == nil {
			c.headers = make(http.Header)
		}
		c.headers.Set(key, value)
	}
}

// WithContext sets the request context.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		c.ctx = ctx
	}
}

// Get retrieves rawURL and returns the response body with the advertised
// content length (-1 when unknown). Credentials embedded in the URL userinfo
// become Basic Auth. At most one redirect is followed. The caller must close
// the returned body.
func Get(rawURL string, opts ...Option) (io.ReadCloser, int64, error) {
	cfg := config{
		client: http.DefaultClient,
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	var user, pass string
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
		u.User = nil
	}

	req, err := http.NewRequestWithContext(cfg.ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	for key, values := range cfg.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	client := *cfg.client
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > 1 {
			return ErrTooManyRedirects
		}
		// credentials do not travel across redirects
		req.Header.Del("Authorization")
		return nil
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, 0, fmt.Errorf("fetch %s: %s", rawURL, resp.Status)
	}
	return resp.Body, resp.ContentLength, nil
}
