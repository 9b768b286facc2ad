// Package e2e holds the browser scenarios run against a live blog: infinite
// scroll, theme toggle, search modal, admin navigation, post editing and the
// editor layout. They check the external application, nothing in this repo.
package e2e

import (
	"context"
	"errors"
	"fmt"

	"github.com/hungpv1995/blog-frontkit/internal/blogapi"
	"github.com/hungpv1995/blog-frontkit/internal/pagination"
	"go.uber.org/zap"
)

// ErrSkipped marks a scenario that could not run in this environment.
var ErrSkipped = errors.New("skipped")

func skip(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrSkipped, fmt.Sprintf(format, args...))
}

// BrowserFactory opens a tab bounded by ctx.
type BrowserFactory interface {
	NewBrowser(ctx context.Context) (*Browser, error)
}

type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) Empty() bool { return c.Email == "" || c.Password == "" }

// Env is what scenarios run against.
type Env struct {
	API      *blogapi.Client
	Browsers BrowserFactory
	Admin    Credentials
	PageSize int
	Log      *zap.SugaredLogger
}

func (e *Env) pageSize() int {
	if e.PageSize > 0 {
		return e.PageSize
	}
	return pagination.DefaultPageSize
}

func (e *Env) browser(ctx context.Context) (*Browser, error) {
	if e.Browsers == nil {
		return nil, skip("no browser configured")
	}
	return e.Browsers.NewBrowser(ctx)
}

func (e *Env) adminBrowser(ctx context.Context) (*Browser, error) {
	if e.Admin.Empty() {
		return nil, skip("admin credentials not set")
	}
	b, err := e.browser(ctx)
	if err != nil {
		return nil, err
	}
	if err := b.SignIn(e.Admin.Email, e.Admin.Password); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

type Scenario struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env *Env) error
}

// All returns every scenario in run order.
func All() []Scenario {
	return []Scenario{
		{"load-more-api", "load-more endpoint returns the second page with the expected fields", loadMoreAPI},
		{"infinite-scroll", "scrolling appends the next page once and stops when exhausted", infiniteScroll},
		{"theme-toggle", "toggle flips the theme once per click and survives a reload", themeToggle},
		{"search-modal", "short queries show the placeholder and typing is debounced", searchModal},
		{"code-blocks", "every code block gets one copy button", codeBlocks},
		{"admin-nav", "signed-in admin sees the user dropdown links", adminNav},
		{"post-create", "admin can create a post from the editor", postCreate},
		{"post-edit", "admin can open an existing post in the editor", postEdit},
		{"editor-layout", "editor sidebar layout on desktop, scroll and mobile", editorLayout},
	}
}

// Select picks scenarios by name, in the order given. No names selects all.
func Select(all []Scenario, names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]Scenario, len(all))
	for _, s := range all {
		byName[s.Name] = s
	}
	out := make([]Scenario, 0, len(names))
	for _, n := range names {
		s, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}
