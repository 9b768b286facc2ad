// Package theme is the blog's theme controller: colour scheme preference,
// the page widgets (toggle, mobile menu, search modal, scroll effects,
// tooltips, code copy buttons, image lightbox) and their interaction state.
//
// Widgets work on a server-side Document. Each one looks its elements up by
// fixed id or class and does nothing when the page does not have them.
package theme

import (
	"net/url"
	"time"

	"go.uber.org/zap"
)

const readyAttr = "data-theme-ready"

// Endpoints the proxy serves next to the blog.
const (
	ToggleEndpoint = "/_theme/toggle"
	ResetEndpoint  = "/_theme/reset"
	ScriptEndpoint = "/_theme/theme.js"
	SearchEndpoint = "/_search"
)

// State is everything the widgets render from. It is passed in explicitly
// per page; the controller keeps none of it.
type State struct {
	Preference Preference
	Menu       MenuState
	Lightbox   Lightbox
	Year       int

	// SearchOpen shows the search modal with Search in its results area.
	SearchOpen  bool
	SearchQuery string
	Search      SearchView

	// Page is the URL the page was requested with. Widget links and forms
	// point back to it with their state parameters changed.
	Page *url.URL
	// ToggleURL receives the theme toggle form and ResetURL the form that
	// drops an explicit choice. SearchURL serves the page script's live
	// search requests.
	ToggleURL string
	ResetURL  string
	SearchURL string
	// ReturnTo is where the toggle endpoint redirects after a form post.
	ReturnTo string
}

// Widget sets up one piece of page behaviour. Setup returns false when the
// page lacks the widget's elements.
type Widget interface {
	Name() string
	Setup(doc *Document, st State) bool
}

// Report lists which widgets found their elements.
type Report struct {
	Applied            []string
	Skipped            []string
	AlreadyInitialized bool
}

type Controller struct {
	widgets []Widget
	now     func() time.Time
	log     *zap.SugaredLogger
}

type Option func(*Controller)

func WithWidgets(w ...Widget) Option {
	return func(c *Controller) { c.widgets = w }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Controller) { c.log = log }
}

func NewController(opts ...Option) *Controller {
	c := &Controller{
		widgets: DefaultWidgets(),
		now:     time.Now,
		log:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultWidgets returns the blog theme's widgets in setup order.
func DefaultWidgets() []Widget {
	return []Widget{
		themeToggle{},
		mobileMenu{},
		searchToggle{},
		scrollEffects{},
		animations{},
		tooltips{},
		codeBlocks{},
		imageLightbox{},
		footerYear{},
		styles{},
		pageScript{},
	}
}

// DefaultState is the state of a freshly loaded page.
func (c *Controller) DefaultState(p Preference) State {
	return State{
		Preference: p,
		Year:       c.now().Year(),
		Page:       &url.URL{Path: "/"},
		ToggleURL:  ToggleEndpoint,
		ResetURL:   ResetEndpoint,
		SearchURL:  SearchEndpoint,
		ReturnTo:   "/",
	}
}

// PageState is the state of page as requested, including the menu, search
// and lightbox state carried in its query.
func (c *Controller) PageState(p Preference, page *url.URL) State {
	st := c.DefaultState(p)
	st.Page = page
	st.ReturnTo = page.RequestURI()
	readPageState(&st, page)
	return st
}

// Init sets up every widget on doc. Running it again on the same document
// changes nothing.
func (c *Controller) Init(doc *Document, st State) Report {
	root := doc.Root()
	if _, ok := root.Attr(readyAttr); ok {
		return Report{AlreadyInitialized: true}
	}
	if st.Year == 0 {
		st.Year = c.now().Year()
	}
	if st.Page == nil {
		st.Page = &url.URL{Path: "/"}
	}

	var rep Report
	for _, w := range c.widgets {
		if w.Setup(doc, st) {
			rep.Applied = append(rep.Applied, w.Name())
		} else {
			rep.Skipped = append(rep.Skipped, w.Name())
		}
	}
	root.SetAttr(readyAttr, "true")

	c.log.Debugw("theme initialized", "applied", rep.Applied, "skipped", rep.Skipped)
	return rep
}
