package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hungpv1995/blog-frontkit/internal/models"
	_ "github.com/lib/pq"
)

// DateLayout is how the blog server formats post dates.
const DateLayout = "January 2, 2006"

var ErrEmptySlugPrefix = errors.New("slug prefix must not be empty")

// PostRepository writes E2E fixture posts straight into the blog server's
// posts table.
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

// CreatePostsWithTransaction inserts all posts or none of them
func (r *PostRepository) CreatePostsWithTransaction(ctx context.Context, posts []models.CreatePostRequest) ([]models.Post, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	created := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		ts := p.CreatedAt
		if ts.IsZero() {
			ts = time.Now()
		}

		var id int
		err := tx.QueryRowContext(ctx,
			`INSERT INTO posts (user_id, category_id, title, content, slug, publication_date, last_edit_date, is_published, featured, featured_image_url, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 RETURNING post_id`,
			p.UserID, p.CategoryID, p.Title, p.Content, p.Slug, ts, ts, p.IsPublished, p.Featured, p.FeaturedImageURL, ts,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to insert post %q: %w", p.Slug, err)
		}

		date := ts.Format(DateLayout)
		created = append(created, models.Post{
			ID:               id,
			UserID:           p.UserID,
			CategoryID:       p.CategoryID,
			Title:            p.Title,
			Content:          p.Content,
			Slug:             p.Slug,
			PublicationDate:  date,
			LastEditDate:     date,
			IsPublished:      p.IsPublished,
			Featured:         p.Featured,
			FeaturedImageURL: p.FeaturedImageURL,
			CreatedAt:        date,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, nil
}

// DeleteBySlugPrefix removes every post whose slug starts with prefix
func (r *PostRepository) DeleteBySlugPrefix(ctx context.Context, prefix string) (int64, error) {
	if prefix == "" {
		return 0, ErrEmptySlugPrefix
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE slug LIKE $1 ESCAPE '\'`,
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete posts: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// CountPublished returns how many posts the load-more endpoint can page through
func (r *PostRepository) CountPublished(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE is_published = true`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}

// ListPublished returns one page of published posts, newest first, in the
// same order the load-more endpoint uses.
func (r *PostRepository) ListPublished(ctx context.Context, limit, offset int) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT post_id, user_id, category_id, title, content, slug, publication_date, last_edit_date, is_published, featured_image_url, created_at, featured
		 FROM posts WHERE is_published = true ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		var (
			p                     models.Post
			published, edited, ts time.Time
			image                 sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.CategoryID, &p.Title, &p.Content, &p.Slug,
			&published, &edited, &p.IsPublished, &image, &ts, &p.Featured); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		p.PublicationDate = published.Format(DateLayout)
		p.LastEditDate = edited.Format(DateLayout)
		p.CreatedAt = ts.Format(DateLayout)
		p.FeaturedImageURL = image.String
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read posts: %w", err)
	}
	return posts, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
