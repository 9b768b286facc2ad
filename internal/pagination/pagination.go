// Package pagination implements the infinite-scroll cursor: it tracks how
// many posts are already rendered, whether the server has more, and makes
// sure at most one page request is in flight.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hungpv1995/blog-frontkit/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 5

	// DefaultThreshold is how close to the bottom, in pixels, a scroll has to
	// land before the next page is requested.
	DefaultThreshold = 200
)

var (
	ErrBusy      = errors.New("pagination: a page request is already in flight")
	ErrExhausted = errors.New("pagination: no more posts")
)

// Fetcher loads the page of posts starting at offset.
type Fetcher interface {
	LoadMore(ctx context.Context, offset int) (*models.PostsList, error)
}

// Sink receives every fetched page, in request order.
type Sink interface {
	Append(posts []models.Post)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(posts []models.Post)

func (f SinkFunc) Append(posts []models.Post) { f(posts) }

// Cursor is a snapshot of the pagination state.
type Cursor struct {
	Offset  int
	Loading bool
	HasMore bool
}

// ScrollPosition describes the viewport relative to the document.
type ScrollPosition struct {
	ScrollY        int
	ViewportHeight int
	DocumentHeight int
}

// NearBottom reports whether the viewport bottom is within threshold pixels
// of the document end.
func NearBottom(pos ScrollPosition, threshold int) bool {
	return pos.ScrollY+pos.ViewportHeight >= pos.DocumentHeight-threshold
}

// Client loads posts page by page as the reader nears the end of the list.
type Client struct {
	fetcher   Fetcher
	sink      Sink
	pageSize  int
	threshold int
	onError   func(error)
	log       *zap.SugaredLogger

	mu     sync.Mutex
	cursor Cursor
}

// Option configures a Client.
type Option func(*Client)

// WithOffset starts the cursor after posts that were rendered with the page.
func WithOffset(offset int) Option {
	return func(c *Client) {
		if offset > 0 {
			c.cursor.Offset = offset
		}
	}
}

func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func WithThreshold(px int) Option {
	return func(c *Client) { c.threshold = px }
}

// WithErrorReporter sets where failed fetches are surfaced. The reporter
// shows the failure inline; it must not block.
func WithErrorReporter(fn func(error)) Option {
	return func(c *Client) { c.onError = fn }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a client that fetches with f and hands each page to s.
func New(f Fetcher, s Sink, opts ...Option) *Client {
	c := &Client{
		fetcher:   f,
		sink:      s,
		pageSize:  DefaultPageSize,
		threshold: DefaultThreshold,
		onError:   func(error) {},
		log:       zap.NewNop().Sugar(),
		cursor:    Cursor{HasMore: true},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cursor returns the current state.
func (c *Client) Cursor() Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

func (c *Client) PageSize() int {
	return c.pageSize
}

// OnScroll requests the next page when pos is near the bottom. Scrolls that
// land elsewhere, or arrive while a request is in flight, do nothing.
func (c *Client) OnScroll(ctx context.Context, pos ScrollPosition) (int, error) {
	if !NearBottom(pos, c.threshold) {
		return 0, nil
	}
	n, err := c.LoadNext(ctx)
	if errors.Is(err, ErrBusy) || errors.Is(err, ErrExhausted) {
		return 0, nil
	}
	return n, err
}

// LoadNext fetches the page at the current offset and hands it to the sink.
// It returns the number of posts appended. ErrBusy and ErrExhausted mean no
// request was made.
func (c *Client) LoadNext(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.cursor.Loading {
		c.mu.Unlock()
		return 0, ErrBusy
	}
	if !c.cursor.HasMore {
		c.mu.Unlock()
		return 0, ErrExhausted
	}
	c.cursor.Loading = true
	offset := c.cursor.Offset
	c.mu.Unlock()

	list, err := c.fetcher.LoadMore(ctx, offset)
	if err != nil {
		c.release()
		err = fmt.Errorf("load page at offset %d: %w", offset, err)
		c.log.Warnw("page request failed", "offset", offset, "error", err)
		c.onError(err)
		return 0, err
	}

	var posts []models.Post
	if list != nil {
		posts = list.Posts
	}
	if len(posts) > 0 {
		c.sink.Append(posts)
	}

	c.mu.Lock()
	c.cursor.Offset += len(posts)
	c.cursor.HasMore = len(posts) == c.pageSize
	c.cursor.Loading = false
	cur := c.cursor
	c.mu.Unlock()

	c.log.Debugw("page appended", "offset", offset, "count", len(posts),
		"next_offset", cur.Offset, "has_more", cur.HasMore)
	return len(posts), nil
}

// LoadAll keeps requesting pages until the server runs out or a request
// fails.
func (c *Client) LoadAll(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := c.LoadNext(ctx)
		total += n
		if errors.Is(err, ErrExhausted) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

func (c *Client) release() {
	c.mu.Lock()
	c.cursor.Loading = false
	c.mu.Unlock()
}
