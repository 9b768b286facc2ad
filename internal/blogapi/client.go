// Package blogapi is a small client for the public JSON endpoints of the blog
// server: the paginated post listing and the search API.
package blogapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hungpv1995/blog-frontkit/internal/models"
	"go.uber.org/zap"
)

const (
	LoadMorePath = "/api/posts/load-more"
	SearchPath   = "/api/search"

	maxErrorBody = 512
)

var ErrInvalidOffset = errors.New("blogapi: offset must not be negative")

// StatusError is returned when the blog server answers with a non-2xx status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client talks to the blog server's JSON API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	log       *zap.SugaredLogger
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = log }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New returns a client rooted at baseURL, e.g. http://localhost:22222.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: 10 * time.Second},
		log:       zap.NewNop().Sugar(),
		userAgent: "blog-frontkit",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// LoadMore fetches the page of published posts starting at offset.
func (c *Client) LoadMore(ctx context.Context, offset int) (*models.PostsList, error) {
	if offset < 0 {
		return nil, ErrInvalidOffset
	}

	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))

	var list models.PostsList
	if err := c.GetJSON(ctx, LoadMorePath, q, &list); err != nil {
		return nil, fmt.Errorf("load more at offset %d: %w", offset, err)
	}
	if list.Posts == nil {
		list.Posts = []models.Post{}
	}
	return &list, nil
}

// Search queries the blog search API.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)

	var results []models.SearchResult
	if err := c.GetJSON(ctx, SearchPath, q, &results); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	return results, nil
}

// GetJSON issues a GET for path with the given query and decodes the JSON
// body into v.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, v any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.log.Debugw("blog api request", "path", path, "query", u.RawQuery,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method: http.MethodGet,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
