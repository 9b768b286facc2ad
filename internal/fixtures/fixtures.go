// Package fixtures seeds the blog with the posts the E2E scenarios expect:
// ten published posts, the three technical ones oldest so they only appear
// after the first load-more.
package fixtures

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/hungpv1995/blog-frontkit/internal/models"
	"go.uber.org/zap"
)

const (
	SlugPrefix = "e2e-fixture-"
	Count      = 10
)

// TechnicalTitles are the posts the infinite-scroll scenario looks for on
// the second page.
var TechnicalTitles = []string{
	"Optimizing Cloud Resource Allocation with Machine Learning",
	"Building Resilient Distributed Systems",
	"The Future of Cloud Middleware Performance",
}

const technicalBody = "%s\n\n" +
	"```go\n" +
	"func main() {\n" +
	"\tfmt.Println(\"hello\")\n" +
	"}\n" +
	"```\n\n%s\n"

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases s and joins its words with dashes.
func Slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// Default returns the fixture set for userID and categoryID. The same seed
// always yields the same posts.
func Default(seed int64, userID, categoryID int) []models.CreatePostRequest {
	f := gofakeit.New(seed)
	posts := make([]models.CreatePostRequest, 0, Count)

	newest := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < Count-len(TechnicalTitles); i++ {
		title := strings.TrimSuffix(f.Sentence(5), ".")
		posts = append(posts, models.CreatePostRequest{
			UserID:      userID,
			CategoryID:  categoryID,
			Title:       title,
			Content:     f.Paragraph(2, 3, 12, "\n\n"),
			Slug:        fmt.Sprintf("%s%02d-%s", SlugPrefix, i+1, Slugify(title)),
			IsPublished: true,
			Featured:    i == 0,
			CreatedAt:   newest.AddDate(0, 0, -i),
		})
	}

	oldest := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, title := range TechnicalTitles {
		posts = append(posts, models.CreatePostRequest{
			UserID:      userID,
			CategoryID:  categoryID,
			Title:       title,
			Content:     fmt.Sprintf(technicalBody, f.Paragraph(1, 3, 12, " "), f.Paragraph(1, 2, 12, " ")),
			Slug:        SlugPrefix + Slugify(title),
			IsPublished: true,
			CreatedAt:   oldest.AddDate(0, -i, 0),
		})
	}
	return posts
}

// PostWriter stores fixture posts in the blog database.
type PostWriter interface {
	CreatePostsWithTransaction(ctx context.Context, posts []models.CreatePostRequest) ([]models.Post, error)
	DeleteBySlugPrefix(ctx context.Context, prefix string) (int64, error)
}

// Indexer mirrors fixture posts into the search index.
type Indexer interface {
	CreateIndex(ctx context.Context) error
	IndexPost(ctx context.Context, post models.Post, createdAt time.Time) error
	DeleteBySlugPrefix(ctx context.Context, prefix string) (int, error)
}

// Removed reports what Reset deleted.
type Removed struct {
	Posts     int64
	Documents int
}

type Loader struct {
	posts PostWriter
	index Indexer
	log   *zap.SugaredLogger
}

// NewLoader returns a loader. index may be nil when the blog runs without
// a search backend.
func NewLoader(posts PostWriter, index Indexer, log *zap.SugaredLogger) *Loader {
	return &Loader{posts: posts, index: index, log: log}
}

// Load replaces any previous fixtures with posts.
func (l *Loader) Load(ctx context.Context, posts []models.CreatePostRequest) ([]models.Post, error) {
	for _, p := range posts {
		if !strings.HasPrefix(p.Slug, SlugPrefix) {
			return nil, fmt.Errorf("fixture slug %q lacks prefix %q", p.Slug, SlugPrefix)
		}
	}

	if _, err := l.Reset(ctx); err != nil {
		return nil, err
	}

	created, err := l.posts.CreatePostsWithTransaction(ctx, posts)
	if err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}
	l.log.Infow("fixture posts created", "count", len(created))

	if l.index == nil {
		return created, nil
	}
	if err := l.index.CreateIndex(ctx); err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}
	for i, p := range created {
		if err := l.index.IndexPost(ctx, p, posts[i].CreatedAt); err != nil {
			return nil, fmt.Errorf("load fixtures: %w", err)
		}
	}
	l.log.Infow("fixture posts indexed", "count", len(created))
	return created, nil
}

// Reset deletes every fixture post from the database and the index.
func (l *Loader) Reset(ctx context.Context) (Removed, error) {
	var rm Removed
	n, err := l.posts.DeleteBySlugPrefix(ctx, SlugPrefix)
	if err != nil {
		return rm, fmt.Errorf("reset fixtures: %w", err)
	}
	rm.Posts = n

	if l.index != nil {
		docs, err := l.index.DeleteBySlugPrefix(ctx, SlugPrefix)
		if err != nil {
			return rm, fmt.Errorf("reset fixtures: %w", err)
		}
		rm.Documents = docs
	}

	l.log.Infow("fixtures reset", "posts", rm.Posts, "documents", rm.Documents)
	return rm, nil
}
