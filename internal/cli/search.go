package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/hungpv1995/blog-frontkit/internal/models"
	"github.com/hungpv1995/blog-frontkit/internal/search"
	"github.com/hungpv1995/blog-frontkit/internal/theme"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Query blog search like the search modal does",
	Long: `With a query, searches once and prints the results. Without one, every
line read from stdin is treated as the search box changing; lines are
debounced the same way keystrokes are in the modal.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("base-url", "", "blog to search (defaults to E2E_BASE_URL)")
	searchCmd.Flags().Duration("delay", 0, "debounce for interactive input (defaults to SEARCH_DEBOUNCE)")
	searchCmd.Flags().Bool("index", false, "query ELASTICSEARCH_URL directly instead of the blog API")
	rootCmd.AddCommand(searchCmd)
}

// indexSearcher lets the modal query the search index without the blog.
type indexSearcher struct {
	es *search.ElasticSearch
}

func (s indexSearcher) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	return s.es.SearchPosts(ctx, query)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	baseURL, _ := cmd.Flags().GetString("base-url")
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	delay, _ := cmd.Flags().GetDuration("delay")
	if delay <= 0 {
		delay = cfg.SearchDebounce
	}
	direct, _ := cmd.Flags().GetBool("index")

	var searcher theme.Searcher
	if direct {
		if cfg.ElasticsearchURL == "" {
			return errors.New("--index needs ELASTICSEARCH_URL")
		}
		client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{cfg.ElasticsearchURL}})
		if err != nil {
			return fmt.Errorf("creating elasticsearch client: %w", err)
		}
		searcher = indexSearcher{es: search.NewElasticSearch(client, cfg.SearchIndex, logger)}
	} else {
		api, err := newBlogClient(cfg, baseURL, logger)
		if err != nil {
			return err
		}
		searcher = api
	}

	out := cmd.OutOrStdout()
	opts := []theme.SearchOption{
		theme.WithSearchDelay(delay),
		theme.WithSearchTimeout(cfg.HTTPTimeout),
		theme.WithSearchLogger(logger),
	}

	if len(args) > 0 {
		modal := theme.NewSearchModal(searcher, nil, opts...)
		v := modal.Submit(cmd.Context(), strings.Join(args, " "))
		printView(out, v)
		if v.Status == theme.StatusError {
			return v.Err
		}
		return nil
	}

	var mu sync.Mutex
	render := func(v theme.SearchView) {
		mu.Lock()
		defer mu.Unlock()
		printView(out, v)
	}
	modal := theme.NewSearchModal(searcher, render, opts...)
	defer modal.Close()

	in := bufio.NewScanner(cmd.InOrStdin())
	for in.Scan() {
		modal.Input(in.Text())
	}
	// end of input behaves like the user pausing: the last query runs
	modal.Flush()
	return in.Err()
}

func printView(w io.Writer, v theme.SearchView) {
	switch v.Status {
	case theme.StatusLoading:
		fmt.Fprintf(w, "[%s] %s\n", v.Query, theme.LoadingMessage)
	case theme.StatusEmpty:
		fmt.Fprintf(w, "[%s] %s\n", v.Query, theme.EmptyMessage)
	case theme.StatusError:
		fmt.Fprintf(w, "[%s] %s (%v)\n", v.Query, theme.ErrorMessage, v.Err)
	case theme.StatusResults:
		fmt.Fprintf(w, "[%s] %d results\n", v.Query, len(v.Results))
		for _, r := range v.Results {
			fmt.Fprintf(w, "  %s\n    /blog/%s  %s\n", r.Title, r.Slug, r.Date)
			if r.Excerpt != "" {
				fmt.Fprintf(w, "    %s\n", r.Excerpt)
			}
		}
	default:
		fmt.Fprintln(w, theme.PlaceholderMessage)
	}
}
