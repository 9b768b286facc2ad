package theme

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const homePage = `<!DOCTYPE html>
<html lang="en">
<head><title>Blog</title></head>
<body>
<nav class="navbar">
  <button id="theme-toggle">Theme</button>
  <button id="search-toggle">Search</button>
  <button id="mobile-menu-btn"><svg><path d="M0"></path></svg></button>
  <div id="mobile-menu"><a href="/">Home</a></div>
</nav>
<section class="hero">Hello</section>
<article class="blog-post">
  <h2 class="blog-post-title"><a href="/blog/first">First</a></h2>
  <img src="/static/uploads/first/cover.png" alt="Cover &amp; more">
  <pre><code>fmt.Println("hi")</code></pre>
  <span data-tooltip="Reading time">5 min</span>
</article>
<button id="back-to-top" class="opacity-0 invisible">Top</button>
<footer>&copy; <span id="current-year">2020</span></footer>
</body>
</html>`

func parse(t *testing.T, page string) *Document {
	t.Helper()
	doc, err := ParseDocument(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func fixedClock() time.Time {
	return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
}

func TestInit_AppliesEveryWidget(t *testing.T) {
	c := NewController(WithClock(fixedClock))
	doc := parse(t, homePage)

	rep := c.Init(doc, c.DefaultState(Preference{Explicit: Dark, HasExplicit: true}))
	assert.Empty(t, rep.Skipped)
	assert.Len(t, rep.Applied, len(DefaultWidgets()))

	root := doc.Root()
	assert.True(t, root.HasClass("dark"))
	assert.Equal(t, "dark", root.AttrOr("data-theme", ""))

	toggle, ok := doc.ByID("theme-toggle")
	require.True(t, ok)
	assert.Equal(t, "true", toggle.AttrOr("aria-pressed", ""))
	assert.True(t, toggle.Parent().Is(`form[action="/_theme/toggle"]`))
	assert.Equal(t, "/", toggle.Parent().Find(`input[name="return_to"]`).AttrOr("value", ""))

	reset := doc.All("form.theme-reset-form")
	assert.Equal(t, "/_theme/reset", reset.AttrOr("action", ""))

	btn, _ := doc.ByID("mobile-menu-btn")
	assert.Equal(t, "false", btn.AttrOr("aria-expanded", ""))
	assert.Equal(t, "submit", btn.AttrOr("type", ""))
	assert.True(t, btn.Parent().Is(`form.mobile-menu-form[method="get"]`))
	assert.Equal(t, "open", btn.Parent().Find(`input[name="_menu"]`).AttrOr("value", ""))
	menu, _ := doc.ByID("mobile-menu")
	assert.False(t, menu.HasClass("open"))
	assert.Equal(t, 0, doc.All("a.mobile-menu-backdrop").Length())

	search, _ := doc.ByID("search-toggle")
	assert.Equal(t, "false", search.AttrOr("aria-expanded", ""))
	assert.True(t, search.Parent().Is("form.search-toggle-form"))
	assert.Equal(t, "open", search.Parent().Find(`input[name="_search"]`).AttrOr("value", ""))

	modal, ok := doc.ByID("search-modal")
	require.True(t, ok)
	assert.True(t, modal.HasClass("hidden"))
	assert.Equal(t, 1, doc.All("#search-results").Length())
	assert.Contains(t, modal.Find("#search-results").Text(), "Start typing to search posts...")
	assert.Equal(t, "/", modal.Find("form").AttrOr("action", ""))
	assert.Equal(t, "open", modal.Find(`input[name="_search"]`).AttrOr("value", ""))

	top, _ := doc.ByID("back-to-top")
	assert.True(t, top.HasClass("invisible"))
	assert.False(t, top.HasClass("visible"))

	assert.True(t, doc.All(".blog-post").HasClass("animate-fade-in"))
	assert.True(t, doc.All(".hero").HasClass("animate-fade-in"))

	tip := doc.All("[data-tooltip]")
	assert.Equal(t, "Reading time", tip.AttrOr("title", ""))

	pre := doc.All("pre")
	assert.True(t, pre.HasClass("relative"))
	assert.Equal(t, 1, pre.Find("button.copy-code").Length())
	assert.Equal(t, CopyLabel, pre.Find("button.copy-code").Text())

	img := doc.All("article img")
	assert.Equal(t, "/static/uploads/first/cover.png", img.AttrOr("data-lightbox", ""))
	assert.Contains(t, img.AttrOr("style", ""), "cursor: pointer")
	assert.True(t, img.Parent().Is("a.lightbox-link"))
	assert.Equal(t, "Cover & more", img.Parent().AttrOr("data-lightbox-alt", ""))
	assert.Equal(t, "/?_alt=Cover+%26+more&_lightbox=%2Fstatic%2Fuploads%2Ffirst%2Fcover.png", img.Parent().AttrOr("href", ""))
	_, shown := doc.ByID("lightbox")
	assert.False(t, shown)

	year, _ := doc.ByID("current-year")
	assert.Equal(t, "2026", year.Text())

	assert.Equal(t, 1, doc.All("style[data-theme-styles]").Length())
	assert.Equal(t, "/_theme/theme.js", doc.All("script[data-theme-script]").AttrOr("src", ""))
}

func TestInit_IsIdempotent(t *testing.T) {
	c := NewController(WithClock(fixedClock))
	doc := parse(t, homePage)
	st := c.DefaultState(Preference{})

	c.Init(doc, st)
	first, err := doc.Bytes()
	require.NoError(t, err)

	rep := c.Init(doc, st)
	assert.True(t, rep.AlreadyInitialized)

	second, err := doc.Bytes()
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.Equal(t, 1, doc.All("button.copy-code").Length())
	assert.Equal(t, 1, doc.All("#search-modal").Length())
}

func TestInit_SurvivesRenderAndReparse(t *testing.T) {
	c := NewController(WithClock(fixedClock))
	doc := parse(t, homePage)
	c.Init(doc, c.DefaultState(Preference{}))

	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "<!DOCTYPE html>"))

	again := parse(t, string(out))
	rep := c.Init(again, c.DefaultState(Preference{}))
	assert.True(t, rep.AlreadyInitialized)
	assert.Equal(t, 1, again.All("button.copy-code").Length())
}

func TestInit_MissingElementsAreSkipped(t *testing.T) {
	c := NewController(WithClock(fixedClock))
	doc := parse(t, `<html><head></head><body><p>Plain page</p></body></html>`)

	rep := c.Init(doc, c.DefaultState(Preference{Explicit: Dark, HasExplicit: true}))
	assert.Equal(t, []string{"styles", "script"}, rep.Applied)
	assert.Contains(t, rep.Skipped, "theme-toggle")
	assert.Contains(t, rep.Skipped, "mobile-menu")
	assert.Contains(t, rep.Skipped, "lightbox")

	// no toggle on the page means no theme class either
	assert.False(t, doc.Root().HasClass("dark"))
	_, ok := doc.ByID("search-modal")
	assert.False(t, ok)
	assert.Equal(t, 1, doc.Head().Find("script[data-theme-script]").Length())
}

func TestInit_MenuNeedsButtonAndMenu(t *testing.T) {
	c := NewController(WithWidgets(mobileMenu{}))
	doc := parse(t, `<html><body><button id="mobile-menu-btn"><svg></svg></button></body></html>`)

	rep := c.Init(doc, State{})
	assert.Equal(t, []string{"mobile-menu"}, rep.Skipped)
	btn, _ := doc.ByID("mobile-menu-btn")
	_, has := btn.Attr("aria-expanded")
	assert.False(t, has)
}

func TestInit_RendersStateNotDefaults(t *testing.T) {
	c := NewController(WithClock(fixedClock))
	doc := parse(t, homePage)

	st := c.DefaultState(Preference{SystemDark: true})
	st.Menu = MenuState{Open: true}
	st.Page = &url.URL{Path: "/blog/first", RawQuery: "_menu=open"}
	st.ReturnTo = "/blog/first"

	c.Init(doc, st)

	assert.True(t, doc.Root().HasClass("dark"))
	menu, _ := doc.ByID("mobile-menu")
	assert.True(t, menu.HasClass("open"))
	btn, _ := doc.ByID("mobile-menu-btn")
	assert.Equal(t, "true", btn.AttrOr("aria-expanded", ""))
	html, err := btn.Find("svg").Html()
	require.NoError(t, err)
	assert.Contains(t, html, "M6 18L18 6")

	// the button now closes the menu
	assert.Equal(t, 0, btn.Parent().Find(`input[name="_menu"]`).Length())
	assert.Equal(t, "/blog/first", btn.Parent().AttrOr("action", ""))
	assert.Equal(t, "/blog/first", menu.AttrOr("data-escape-href", ""))
	assert.Equal(t, "/blog/first", doc.All("a.mobile-menu-backdrop").AttrOr("href", ""))

	top, _ := doc.ByID("back-to-top")
	assert.True(t, top.HasClass("invisible"))
	assert.Equal(t, "300", top.AttrOr("data-scroll-offset", ""))
	assert.False(t, doc.All(".navbar").HasClass("navbar-scrolled"))

	toggle, _ := doc.ByID("theme-toggle")
	assert.Equal(t, "/blog/first", toggle.Parent().Find(`input[name="return_to"]`).AttrOr("value", ""))
}

func TestInit_LightRemovesDarkClass(t *testing.T) {
	c := NewController()
	doc := parse(t, strings.Replace(homePage, `<html lang="en">`, `<html lang="en" class="dark">`, 1))

	c.Init(doc, c.DefaultState(Preference{Explicit: Light, HasExplicit: true}))
	assert.False(t, doc.Root().HasClass("dark"))
}

func TestInit_KeepsExistingLinkAroundImage(t *testing.T) {
	c := NewController(WithWidgets(imageLightbox{}))
	doc := parse(t, `<html><body><article><a href="/full.png"><img src="/thumb.png"></a></article></body></html>`)

	c.Init(doc, State{})
	img := doc.All("article img")
	assert.True(t, img.Parent().Is(`a[href="/full.png"]`))
	assert.Equal(t, 1, doc.All("article a").Length())
}
