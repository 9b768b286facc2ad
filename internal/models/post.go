package models

import (
	"time"
)

// Post is a blog post as served by GET /api/posts/load-more. The blog server
// encodes it without JSON tags, so field names are the wire names.
type Post struct {
	ID               int
	UserID           int
	Username         string `json:",omitempty"`
	CategoryID       int
	Title            string
	Content          string
	ContentHTML      string `json:",omitempty"`
	Slug             string
	PublicationDate  string
	LastEditDate     string
	IsPublished      bool
	Featured         bool
	FeaturedImageURL string
	CreatedAt        string
}

// PostsList is the load-more response envelope
type PostsList struct {
	Posts []Post
}

// SearchResult is one entry of GET /api/search
type SearchResult struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Date    string `json:"date"`
}

// CreatePostRequest describes a post written directly into the blog database
// when loading E2E fixtures.
type CreatePostRequest struct {
	UserID           int
	CategoryID       int
	Title            string
	Content          string
	Slug             string
	IsPublished      bool
	Featured         bool
	FeaturedImageURL string
	CreatedAt        time.Time
}
