package pagination

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/hungpv1995/blog-frontkit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureFetcher serves pages out of a fixed post list, like the blog server
// does with LIMIT/OFFSET.
type fixtureFetcher struct {
	mu       sync.Mutex
	posts    []models.Post
	pageSize int
	calls    []int
	failNext error
}

func newFixtureFetcher(n, pageSize int) *fixtureFetcher {
	f := &fixtureFetcher{pageSize: pageSize}
	for i := 1; i <= n; i++ {
		f.posts = append(f.posts, models.Post{ID: i, Title: fmt.Sprintf("Post %d", i)})
	}
	return f
}

func (f *fixtureFetcher) LoadMore(_ context.Context, offset int) (*models.PostsList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, offset)
	if err := f.failNext; err != nil {
		f.failNext = nil
		return nil, err
	}
	if offset >= len(f.posts) {
		return &models.PostsList{}, nil
	}
	end := offset + f.pageSize
	if end > len(f.posts) {
		end = len(f.posts)
	}
	return &models.PostsList{Posts: append([]models.Post(nil), f.posts[offset:end]...)}, nil
}

func (f *fixtureFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingSink struct {
	mu    sync.Mutex
	posts []models.Post
}

func (s *recordingSink) Append(posts []models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, posts...)
}

func (s *recordingSink) ids() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, len(s.posts))
	for i, p := range s.posts {
		ids[i] = p.ID
	}
	return ids
}

func TestLoadNext_TenPostFixture(t *testing.T) {
	fetcher := newFixtureFetcher(10, DefaultPageSize)
	sink := &recordingSink{}
	// the first five are rendered with the page
	c := New(fetcher, sink, WithOffset(5))
	ctx := context.Background()

	n, err := c.LoadNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, Cursor{Offset: 10, HasMore: true}, c.Cursor())
	assert.Equal(t, []int{6, 7, 8, 9, 10}, sink.ids())

	// full page means the server may have more; the empty page ends it
	n, err = c.LoadNext(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, Cursor{Offset: 10, HasMore: false}, c.Cursor())

	_, err = c.LoadNext(ctx)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, []int{5, 10}, fetcher.calls)
	assert.Len(t, sink.ids(), 5)
}

func TestLoadNext_ShortPageStopsFetching(t *testing.T) {
	fetcher := newFixtureFetcher(8, DefaultPageSize)
	c := New(fetcher, &recordingSink{}, WithOffset(5))

	n, err := c.LoadNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, c.Cursor().HasMore)

	for i := 0; i < 3; i++ {
		_, err = c.LoadNext(context.Background())
		assert.ErrorIs(t, err, ErrExhausted)
	}
	assert.Equal(t, 1, fetcher.callCount())
}

func TestLoadNext_FailureLeavesCursorForRetry(t *testing.T) {
	fetcher := newFixtureFetcher(10, DefaultPageSize)
	fetcher.failNext = errors.New("connection refused")

	var reported []error
	c := New(fetcher, &recordingSink{}, WithOffset(5),
		WithErrorReporter(func(err error) { reported = append(reported, err) }))

	_, err := c.LoadNext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	require.Len(t, reported, 1)
	assert.Equal(t, Cursor{Offset: 5, HasMore: true}, c.Cursor())

	n, err := c.LoadNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []int{5, 5}, fetcher.calls)
}

type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func (b *blockingFetcher) LoadMore(ctx context.Context, offset int) (*models.PostsList, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	close(b.started)
	<-b.release
	return &models.PostsList{Posts: []models.Post{{ID: offset + 1}}}, nil
}

func TestLoadNext_BusyWhileInFlight(t *testing.T) {
	fetcher := &blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}
	c := New(fetcher, &recordingSink{})

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadNext(context.Background())
		done <- err
	}()
	<-fetcher.started

	assert.True(t, c.Cursor().Loading)
	for i := 0; i < 5; i++ {
		_, err := c.LoadNext(context.Background())
		assert.ErrorIs(t, err, ErrBusy)
	}

	close(fetcher.release)
	require.NoError(t, <-done)

	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, Cursor{Offset: 1, HasMore: false}, c.Cursor())
}

func TestOnScroll(t *testing.T) {
	fetcher := newFixtureFetcher(10, DefaultPageSize)
	c := New(fetcher, &recordingSink{}, WithOffset(5), WithThreshold(100))
	ctx := context.Background()

	n, err := c.OnScroll(ctx, ScrollPosition{ScrollY: 0, ViewportHeight: 800, DocumentHeight: 3000})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, fetcher.callCount())

	n, err = c.OnScroll(ctx, ScrollPosition{ScrollY: 2150, ViewportHeight: 800, DocumentHeight: 3000})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// empty page, then nothing at all
	_, _ = c.OnScroll(ctx, ScrollPosition{ScrollY: 4200, ViewportHeight: 800, DocumentHeight: 5000})
	n, err = c.OnScroll(ctx, ScrollPosition{ScrollY: 4200, ViewportHeight: 800, DocumentHeight: 5000})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, fetcher.callCount())
	assert.Equal(t, 10, c.Cursor().Offset)
}

func TestLoadAll(t *testing.T) {
	fetcher := newFixtureFetcher(12, DefaultPageSize)
	sink := &recordingSink{}
	c := New(fetcher, sink)

	total, err := c.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.Equal(t, []int{0, 5, 10}, fetcher.calls)
	assert.Len(t, sink.ids(), 12)
}

func TestOffsetIsMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		fetcher := newFixtureFetcher(rng.Intn(40), DefaultPageSize)
		c := New(fetcher, &recordingSink{})

		prev := c.Cursor().Offset
		for step := 0; step < 20; step++ {
			if rng.Intn(4) == 0 {
				fetcher.failNext = errors.New("flaky")
			}
			n, err := c.LoadNext(context.Background())
			cur := c.Cursor()

			assert.GreaterOrEqual(t, cur.Offset, prev)
			if err == nil {
				assert.Equal(t, prev+n, cur.Offset)
			} else {
				assert.Equal(t, prev, cur.Offset)
			}
			assert.False(t, cur.Loading)
			prev = cur.Offset
		}
	}
}

func TestNearBottom(t *testing.T) {
	tests := []struct {
		pos       ScrollPosition
		threshold int
		want      bool
	}{
		{ScrollPosition{0, 800, 800}, 0, true},
		{ScrollPosition{0, 800, 2000}, 200, false},
		{ScrollPosition{1000, 800, 2000}, 200, true},
		{ScrollPosition{999, 800, 2000}, 200, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NearBottom(tc.pos, tc.threshold), "%+v", tc.pos)
	}
}
