package cli

import (
	"context"
	"database/sql"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/hungpv1995/blog-frontkit/internal/config"
	"github.com/hungpv1995/blog-frontkit/internal/fixtures"
	"github.com/hungpv1995/blog-frontkit/internal/repository"
	"github.com/hungpv1995/blog-frontkit/internal/search"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixturesCmd = &cobra.Command{
	Use:   "fixtures",
	Short: "Manage the fixture posts the E2E scenarios rely on",
	Long: `Writes the fixture posts straight into the blog database, and into the
search index when ELASTICSEARCH_URL is set. Fixture slugs share a prefix,
so loading and resetting never touch real posts.`,
}

var fixturesLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Replace the fixture posts",
	Args:  cobra.NoArgs,
	RunE:  runFixturesLoad,
}

var fixturesResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the fixture posts",
	Args:  cobra.NoArgs,
	RunE:  runFixturesReset,
}

var fixturesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the first page of published posts as the feed will serve it",
	Args:  cobra.NoArgs,
	RunE:  runFixturesStatus,
}

func init() {
	fixturesCmd.AddCommand(fixturesLoadCmd)
	fixturesCmd.AddCommand(fixturesResetCmd)
	fixturesCmd.AddCommand(fixturesStatusCmd)
	rootCmd.AddCommand(fixturesCmd)
}

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database %s:%s/%s: %w", cfg.DBHost, cfg.DBPort, cfg.DBName, err)
	}
	return db, nil
}

// newLoader wires the fixture loader. The search index is optional.
func newLoader(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*fixtures.Loader, func(), error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var index fixtures.Indexer
	if cfg.ElasticsearchURL != "" {
		client, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses: []string{cfg.ElasticsearchURL},
		})
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("creating elasticsearch client: %w", err)
		}
		index = search.NewElasticSearch(client, cfg.SearchIndex, logger)
	} else {
		logger.Infow("ELASTICSEARCH_URL not set, search index left untouched")
	}

	loader := fixtures.NewLoader(repository.NewPostRepository(db), index, logger)
	return loader, func() { db.Close() }, nil
}

func runFixturesLoad(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	loader, closeDB, err := newLoader(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	posts := fixtures.Default(cfg.FixtureSeed, cfg.FixtureUserID, cfg.FixtureCategoryID)
	created, err := loader.Load(ctx, posts)
	if err != nil {
		return fmt.Errorf("loading fixtures: %w", err)
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tSLUG")
	for i, p := range created {
		fmt.Fprintf(w, "%d\t%s\t%s\n", p.ID, posts[i].CreatedAt.Format(repository.DateLayout), p.Slug)
	}
	w.Flush()
	fmt.Fprintf(out, "\nLoaded %d fixture posts\n", len(created))
	return nil
}

func runFixturesReset(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	loader, closeDB, err := newLoader(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	removed, err := loader.Reset(ctx)
	if err != nil {
		return fmt.Errorf("resetting fixtures: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d posts and %d index documents\n", removed.Posts, removed.Documents)
	return nil
}

func runFixturesStatus(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repository.NewPostRepository(db)
	total, err := repo.CountPublished(ctx)
	if err != nil {
		return err
	}
	page, err := repo.ListPublished(ctx, cfg.PageSize, 0)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d published posts, first page:\n", total)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, p := range page {
		fmt.Fprintf(w, "%s\t%s\n", p.CreatedAt, p.Slug)
	}
	return w.Flush()
}
