package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hungpv1995/blog-frontkit/internal/blogapi"
	"github.com/hungpv1995/blog-frontkit/internal/fixtures"
	"github.com/hungpv1995/blog-frontkit/internal/models"
	"github.com/hungpv1995/blog-frontkit/internal/pagination"
	"github.com/hungpv1995/blog-frontkit/internal/theme"
)

const (
	postSelector      = "article.blog-post"
	postTitleSelector = "h2.blog-post-title a"
	searchInput       = "#search-modal input[name=q]"
	searchResults     = "#search-results"

	// settle is how long a scenario waits for the page to react when
	// nothing observable is expected to change.
	settle = 2 * time.Second
)

// requiredPostFields are the load-more fields the pages rely on.
var requiredPostFields = []string{"ID", "Title", "Slug", "Content", "CreatedAt", "PublicationDate"}

func loadMoreAPI(ctx context.Context, env *Env) error {
	size := env.pageSize()
	q := url.Values{}
	q.Set("offset", strconv.Itoa(size))

	var raw struct {
		Posts []map[string]json.RawMessage
	}
	if err := env.API.GetJSON(ctx, blogapi.LoadMorePath, q, &raw); err != nil {
		return err
	}
	if len(raw.Posts) != size {
		return fmt.Errorf("offset %d returned %d posts, want %d", size, len(raw.Posts), size)
	}

	var errs []error
	for i, p := range raw.Posts {
		for _, f := range requiredPostFields {
			if _, ok := p[f]; !ok {
				errs = append(errs, fmt.Errorf("post %d lacks field %s", i, f))
			}
		}
	}
	return errors.Join(errs...)
}

func infiniteScroll(ctx context.Context, env *Env) error {
	var expected []string
	oracle := pagination.New(env.API, pagination.SinkFunc(func(posts []models.Post) {
		for _, p := range posts {
			expected = append(expected, strings.TrimSpace(p.Title))
		}
	}), pagination.WithPageSize(env.pageSize()))

	// the first page is rendered by the server
	if _, err := oracle.LoadNext(ctx); err != nil {
		return err
	}

	b, err := env.browser(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.Navigate("/"); err != nil {
		return err
	}
	if err := b.WaitCount(postSelector, 1); err != nil {
		return err
	}
	n, err := b.Count(postSelector)
	if err != nil {
		return err
	}
	if n != len(expected) {
		return fmt.Errorf("initial page shows %d posts, want %d", n, len(expected))
	}

	// first scroll appends the next page
	if _, err := oracle.LoadNext(ctx); err != nil && !errors.Is(err, pagination.ErrExhausted) {
		return err
	}
	if err := b.ScrollToBottom(); err != nil {
		return err
	}
	if err := b.WaitCount(postSelector, len(expected)); err != nil {
		return err
	}
	if err := b.Sleep(settle); err != nil {
		return err
	}
	titles, err := b.Texts(postSelector + " " + postTitleSelector)
	if err != nil {
		return err
	}
	if !slices.Equal(titles, expected) {
		return fmt.Errorf("after scroll titles = %q, want %q", titles, expected)
	}
	for _, tt := range fixtures.TechnicalTitles {
		if !slices.Contains(titles, tt) {
			return fmt.Errorf("post %q not shown after scrolling", tt)
		}
	}

	// further scrolls change nothing
	if _, err := oracle.LoadNext(ctx); err != nil && !errors.Is(err, pagination.ErrExhausted) {
		return err
	}
	if err := b.ScrollToBottom(); err != nil {
		return err
	}
	if err := b.Sleep(settle); err != nil {
		return err
	}
	if n, err = b.Count(postSelector); err != nil {
		return err
	}
	if n != len(expected) {
		return fmt.Errorf("after second scroll %d posts, want %d", n, len(expected))
	}

	if oracle.Cursor().HasMore {
		return nil
	}
	before := b.Requests(blogapi.LoadMorePath)
	if err := b.ScrollTo(0); err != nil {
		return err
	}
	if err := b.ScrollToBottom(); err != nil {
		return err
	}
	if err := b.Sleep(settle); err != nil {
		return err
	}
	if after := b.Requests(blogapi.LoadMorePath); after != before {
		return fmt.Errorf("exhausted feed still sent %d load-more requests", after-before)
	}
	return nil
}

func themeToggle(ctx context.Context, env *Env) error {
	b, err := env.browser(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.Navigate("/"); err != nil {
		return err
	}
	if err := b.WaitReady("#theme-toggle"); err != nil {
		return err
	}
	initial, err := b.HasClass("html", "dark")
	if err != nil {
		return err
	}

	if err := b.Click("#theme-toggle"); err != nil {
		return err
	}
	if err := b.WaitClass("html", "dark", !initial); err != nil {
		return err
	}
	// one click, one flip
	if err := b.Sleep(500 * time.Millisecond); err != nil {
		return err
	}
	dark, err := b.HasClass("html", "dark")
	if err != nil {
		return err
	}
	if dark == initial {
		return errors.New("theme flipped back after a single click")
	}

	if err := b.Reload(); err != nil {
		return err
	}
	if err := b.WaitClass("html", "dark", !initial); err != nil {
		return fmt.Errorf("preference not re-applied after reload: %w", err)
	}

	if err := b.WaitReady("#theme-toggle"); err != nil {
		return err
	}
	if err := b.Click("#theme-toggle"); err != nil {
		return err
	}
	return b.WaitClass("html", "dark", initial)
}

func searchModal(ctx context.Context, env *Env) error {
	b, err := env.browser(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.Navigate("/"); err != nil {
		return err
	}
	if ok, err := b.Exists("#search-toggle"); err != nil {
		return err
	} else if !ok {
		return skip("page has no search toggle")
	}
	if err := b.Click("#search-toggle"); err != nil {
		return err
	}
	if err := b.WaitVisible(searchInput); err != nil {
		return err
	}

	b.ResetRequests()
	if err := b.Type(searchInput, "c"); err != nil {
		return err
	}
	if err := b.Sleep(theme.DefaultSearchDelay + time.Second); err != nil {
		return err
	}
	text, err := b.Text(searchResults)
	if err != nil {
		return err
	}
	if !strings.Contains(text, theme.PlaceholderMessage) {
		return fmt.Errorf("one-character query shows %q, want the placeholder", text)
	}
	if n := searchRequests(b); n != 0 {
		return fmt.Errorf("one-character query sent %d search requests", n)
	}

	if err := b.Type(searchInput, "loud"); err != nil {
		return err
	}
	if err := b.Sleep(theme.DefaultSearchDelay + time.Second); err != nil {
		return err
	}
	if n := searchRequests(b); n != 1 {
		return fmt.Errorf("typing %q sent %d search requests, want 1", "cloud", n)
	}
	return nil
}

// searchRequests counts search calls whether the page script goes through
// the proxy endpoint or straight to the blog API.
func searchRequests(b *Browser) int {
	return b.Requests(theme.SearchEndpoint) + b.Requests(blogapi.SearchPath)
}

func codeBlocks(ctx context.Context, env *Env) error {
	var slug string
	oracle := pagination.New(env.API, pagination.SinkFunc(func(posts []models.Post) {
		for _, p := range posts {
			if slug == "" && strings.Contains(p.Content, "```") {
				slug = p.Slug
			}
		}
	}), pagination.WithPageSize(env.pageSize()))
	if _, err := oracle.LoadAll(ctx); err != nil {
		return err
	}
	if slug == "" {
		return skip("no published post contains a code block")
	}

	b, err := env.browser(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.Navigate("/blog/" + slug); err != nil {
		return err
	}
	if err := b.WaitCount("pre", 1); err != nil {
		return err
	}

	var labels [][]string
	err = b.Eval(`Array.from(document.querySelectorAll('pre'), p => Array.from(p.querySelectorAll('button'), x => x.textContent.trim()))`, &labels)
	if err != nil {
		return err
	}
	for i, l := range labels {
		if len(l) != 1 || l[0] != theme.CopyLabel {
			return fmt.Errorf("code block %d has buttons %q, want one %q", i, l, theme.CopyLabel)
		}
	}
	return nil
}

// adminLinks are the user dropdown entries an admin must see.
var adminLinks = []string{
	`a[href="/admin/posts"].admin-link`,
	`.user-dropdown-menu a[href="/users/me"]`,
	`a[href="/api-access"]`,
	`a[aria-label="Sign Out"]`,
}

func adminNav(ctx context.Context, env *Env) error {
	b, err := env.adminBrowser(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.Navigate("/"); err != nil {
		return err
	}
	if err := b.WaitVisible(".user-dropdown"); err != nil {
		return err
	}
	if err := b.Click(".user-dropdown-btn"); err != nil {
		return err
	}

	var errs []error
	for _, sel := range adminLinks {
		ok, err := b.Exists(sel)
		if err != nil {
			return err
		}
		if !ok {
			errs = append(errs, fmt.Errorf("missing %s", sel))
		}
	}
	return errors.Join(errs...)
}

func postCreate(ctx context.Context, env *Env) error {
	b, err := env.adminBrowser(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.Navigate("/admin/posts/new"); err != nil {
		return err
	}
	if err := b.WaitVisible(`input[name="title"]`); err != nil {
		return err
	}

	// the fixture prefix in the title lets `fixtures reset` clean it up
	title := fmt.Sprintf("E2E Fixture Post %d", time.Now().Unix())
	if err := b.Type(`input[name="title"]`, title); err != nil {
		return err
	}
	if err := b.Click("#editor"); err != nil {
		return err
	}
	if err := b.Type("#editor", "Written by the post-create scenario."); err != nil {
		return err
	}
	if ok, _ := b.Exists(`input[name="categories"]`); ok {
		if err := b.Type(`input[name="categories"]`, "Testing"); err != nil {
			return err
		}
	}
	if err := b.Click(`button[type="submit"]`); err != nil {
		return err
	}
	if err := b.WaitPath("/admin/posts"); err != nil {
		return err
	}

	titles, err := b.Texts("body")
	if err != nil {
		return err
	}
	if len(titles) == 0 || !strings.Contains(titles[0], title) {
		return fmt.Errorf("new post %q not listed", title)
	}
	return nil
}

func firstEditLink(b *Browser) (string, error) {
	if err := b.Navigate("/admin/posts"); err != nil {
		return "", err
	}
	href, ok, err := b.Attr(`a[href^="/admin/posts/"][href$="/edit"]`, "href")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", skip("no post to edit")
	}
	return href, nil
}

func postEdit(ctx context.Context, env *Env) error {
	b, err := env.adminBrowser(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	href, err := firstEditLink(b)
	if err != nil {
		return err
	}
	if err := b.Navigate(href); err != nil {
		return err
	}
	if err := b.WaitReady("#content-field"); err != nil {
		return err
	}

	var title string
	if err := b.Eval(`document.querySelector('input[name="title"]').value`, &title); err != nil {
		return err
	}
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("editor at %s has an empty title", href)
	}
	return nil
}

func editorLayout(ctx context.Context, env *Env) error {
	b, err := env.adminBrowser(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	href, err := firstEditLink(b)
	if err != nil {
		return err
	}
	if err := b.Navigate(href); err != nil {
		return err
	}
	if err := b.WaitVisible(".editor-layout"); err != nil {
		return err
	}

	boxes := func() (Box, Box, error) {
		main, err := b.Box(".editor-main")
		if err != nil {
			return Box{}, Box{}, err
		}
		side, err := b.Box(".editor-sidebar")
		return main, side, err
	}
	pause := func() error { return b.Sleep(500 * time.Millisecond) }

	var errs []error

	if err := b.SetViewport(1200, 800); err != nil {
		return err
	}
	if err := pause(); err != nil {
		return err
	}
	main, side, err := boxes()
	if err != nil {
		return err
	}
	if err := CheckDesktopLayout(main, side); err != nil {
		errs = append(errs, fmt.Errorf("desktop: %w", err))
	}

	if err := b.ScrollTo(1000); err != nil {
		return err
	}
	if err := pause(); err != nil {
		return err
	}
	main, scrolled, err := boxes()
	if err != nil {
		return err
	}
	if err := CheckStickySidebar(side, scrolled); err != nil {
		errs = append(errs, fmt.Errorf("sticky: %w", err))
	}
	if err := CheckLongContentLayout(main, scrolled); err != nil {
		errs = append(errs, fmt.Errorf("long content: %w", err))
	}

	if bg, err := b.ComputedStyle(".editor-sidebar", "background-color"); err != nil {
		return err
	} else if strings.TrimSpace(bg) == transparent {
		errs = append(errs, errors.New("sidebar has no background colour"))
	}

	if ok, _ := b.Exists("#tab-preview"); ok {
		if err := b.Click("#tab-preview"); err != nil {
			return err
		}
		if err := b.WaitVisible("#preview"); err != nil {
			errs = append(errs, fmt.Errorf("preview tab: %w", err))
		}
		if err := b.Click("#tab-edit"); err != nil {
			return err
		}
		if err := b.WaitVisible("#editor"); err != nil {
			errs = append(errs, fmt.Errorf("edit tab: %w", err))
		}
	}

	if err := b.SetViewport(375, 667); err != nil {
		return err
	}
	if err := b.ScrollTo(0); err != nil {
		return err
	}
	if err := pause(); err != nil {
		return err
	}
	if main, side, err = boxes(); err != nil {
		return err
	}
	if err := CheckMobileLayout(main, side, 375); err != nil {
		errs = append(errs, fmt.Errorf("mobile: %w", err))
	}
	return errors.Join(errs...)
}
