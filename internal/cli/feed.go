package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/hungpv1995/blog-frontkit/internal/models"
	"github.com/hungpv1995/blog-frontkit/internal/pagination"
	"github.com/spf13/cobra"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Page through published posts the way the infinite scroll does",
	Long: `Requests pages from the load-more endpoint. Press Enter for the next page
and q to quit, or pass --all to fetch until the server runs out.`,
	Args: cobra.NoArgs,
	RunE: runFeed,
}

func init() {
	feedCmd.Flags().String("base-url", "", "blog to read from (defaults to E2E_BASE_URL)")
	feedCmd.Flags().Int("offset", 0, "posts already shown before the first request")
	feedCmd.Flags().Bool("all", false, "fetch every page without prompting")
	rootCmd.AddCommand(feedCmd)
}

func runFeed(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	baseURL, _ := cmd.Flags().GetString("base-url")
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	offset, _ := cmd.Flags().GetInt("offset")
	all, _ := cmd.Flags().GetBool("all")

	api, err := newBlogClient(cfg, baseURL, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	shown := offset
	sink := pagination.SinkFunc(func(posts []models.Post) {
		for _, p := range posts {
			shown++
			fmt.Fprintf(out, "%3d. %s\n     %s  /blog/%s\n", shown, p.Title, p.CreatedAt, p.Slug)
		}
	})
	feed := pagination.New(api, sink,
		pagination.WithOffset(offset),
		pagination.WithPageSize(cfg.PageSize),
		pagination.WithLogger(logger),
	)

	ctx := cmd.Context()
	if all {
		n, err := feed.LoadAll(ctx)
		fmt.Fprintf(out, "\n%d posts loaded\n", n)
		return err
	}

	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		_, err := feed.LoadNext(ctx)
		switch {
		case errors.Is(err, pagination.ErrExhausted):
			fmt.Fprintln(out, "-- no more posts --")
			return nil
		case err != nil:
			// the cursor is released, so the next prompt retries the same page
			fmt.Fprintf(out, "-- failed to load posts: %v --\n", err)
		}
		if !feed.Cursor().HasMore {
			fmt.Fprintln(out, "-- no more posts --")
			return nil
		}

		fmt.Fprint(out, "-- Enter for more, q to quit -- ")
		if !prompt(in) {
			fmt.Fprintln(out)
			return in.Err()
		}
	}
}

// prompt waits for a line and reports whether the user wants to continue.
func prompt(in *bufio.Scanner) bool {
	if !in.Scan() {
		return false
	}
	answer := strings.TrimSpace(strings.ToLower(in.Text()))
	return answer != "q" && answer != "quit"
}
