package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/hungpv1995/blog-frontkit/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultIndex = "posts"

	excerptLength = 150
	resultSize    = 10
)

// ElasticSearch keeps the E2E fixture posts in the index behind the blog's
// search API.
type ElasticSearch struct {
	client *elasticsearch.Client
	index  string
	log    *zap.SugaredLogger
}

func NewElasticSearch(client *elasticsearch.Client, index string, log *zap.SugaredLogger) *ElasticSearch {
	if index == "" {
		index = DefaultIndex
	}
	return &ElasticSearch{
		client: client,
		index:  index,
		log:    log,
	}
}

type document struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Slug        string    `json:"slug"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateIndex creates the posts index with proper mapping
func (es *ElasticSearch) CreateIndex(ctx context.Context) error {
	mapping := `{
		"mappings": {
			"properties": {
				"id": {"type": "integer"},
				"title": {"type": "text"},
				"content": {"type": "text"},
				"slug": {"type": "keyword"},
				"is_published": {"type": "boolean"},
				"created_at": {"type": "date"}
			}
		}
	}`

	req := esapi.IndicesCreateRequest{
		Index: es.index,
		Body:  strings.NewReader(mapping),
	}

	res, err := req.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("error creating index: %s", res.String())
	}
	return nil
}

// IndexPost indexes a post in Elasticsearch. createdAt is passed separately
// because the model carries the display date only.
func (es *ElasticSearch) IndexPost(ctx context.Context, post models.Post, createdAt time.Time) error {
	docID := strconv.Itoa(post.ID)

	docJSON, err := json.Marshal(document{
		ID:          post.ID,
		Title:       post.Title,
		Content:     post.Content,
		Slug:        post.Slug,
		IsPublished: post.IsPublished,
		CreatedAt:   createdAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      es.index,
		DocumentID: docID,
		Body:       bytes.NewReader(docJSON),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}

	es.log.Debugw("document indexed", "id", docID, "slug", post.Slug)
	return nil
}

// DeleteBySlugPrefix removes every document whose slug starts with prefix
// and returns how many were deleted.
func (es *ElasticSearch) DeleteBySlugPrefix(ctx context.Context, prefix string) (int, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"prefix": map[string]interface{}{
				"slug": prefix,
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return 0, fmt.Errorf("failed to encode query: %w", err)
	}

	refresh := true
	req := esapi.DeleteByQueryRequest{
		Index:   []string{es.index},
		Body:    &buf,
		Refresh: &refresh,
	}

	res, err := req.Do(ctx, es.client)
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return 0, nil // no index, nothing to delete
	}
	if res.IsError() {
		return 0, fmt.Errorf("error deleting documents: %s", res.String())
	}

	var result struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}
	return result.Deleted, nil
}

// SearchPosts performs full-text search on published posts and shapes the
// hits the way the blog's search API does.
func (es *ElasticSearch) SearchPosts(ctx context.Context, query string) ([]models.SearchResult, error) {
	searchQuery := map[string]interface{}{
		"size": resultSize,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  query,
						"fields": []string{"title^2", "content"},
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"is_published": true},
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(searchQuery); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := es.client.Search(
		es.client.Search.WithContext(ctx),
		es.client.Search.WithIndex(es.index),
		es.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]models.SearchResult, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		results = append(results, models.SearchResult{
			Slug:    hit.Source.Slug,
			Title:   hit.Source.Title,
			Excerpt: excerpt(hit.Source.Content, excerptLength),
			Date:    hit.Source.CreatedAt.Format("January 2, 2006"),
		})
	}
	return results, nil
}

// excerpt cuts s to at most n runes on a word boundary.
func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	cut := string([]rune(s)[:n])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
