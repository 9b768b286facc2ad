package theme

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Query parameters that carry widget state in page URLs. Opening the menu,
// the search modal or the lightbox is a link to the same page with the
// parameter set; closing drops it.
const (
	MenuParam     = "_menu"
	SearchParam   = "_search"
	QueryParam    = "q"
	LightboxParam = "_lightbox"
	AltParam      = "_alt"

	openValue = "open"
)

// readPageState fills the widget state from the page URL.
func readPageState(st *State, page *url.URL) {
	q := page.Query()
	st.Menu.Open = q.Get(MenuParam) == openValue
	if q.Get(SearchParam) == openValue {
		st.SearchOpen = true
		st.SearchQuery = strings.TrimSpace(q.Get(QueryParam))
	}
	if src := q.Get(LightboxParam); src != "" {
		st.Lightbox.Show(src, q.Get(AltParam))
	}
}

// StripPageParams removes the widget parameters from u so the blog server
// never sees them. q is only removed along with the search parameter, since
// blog pages may use it themselves.
func StripPageParams(u *url.URL) {
	if u.RawQuery == "" {
		return
	}
	q := u.Query()
	drop := []string{MenuParam, LightboxParam, AltParam}
	if q.Has(SearchParam) {
		drop = append(drop, SearchParam, QueryParam)
	}

	changed := false
	for _, k := range drop {
		if q.Has(k) {
			q.Del(k)
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
}

// pageLink returns the page path and query with set applied and drop removed.
func pageLink(page *url.URL, set map[string]string, drop ...string) string {
	q := page.Query()
	for _, k := range drop {
		q.Del(k)
	}
	for k, v := range set {
		q.Set(k, v)
	}
	link := page.EscapedPath()
	if link == "" {
		link = "/"
	}
	if enc := q.Encode(); enc != "" {
		link += "?" + enc
	}
	return link
}

func menuLink(page *url.URL, m MenuState) string {
	if m.Open {
		return pageLink(page, map[string]string{MenuParam: openValue})
	}
	return pageLink(page, nil, MenuParam)
}

func lightboxLink(page *url.URL, l Lightbox) string {
	if l.Open {
		return pageLink(page, map[string]string{LightboxParam: l.Src, AltParam: l.Alt})
	}
	return pageLink(page, nil, LightboxParam, AltParam)
}

func searchCloseLink(page *url.URL) string {
	return pageLink(page, nil, SearchParam, QueryParam)
}

// hiddenInputs renders the page's query, minus skip, as hidden form fields
// so a GET form keeps the rest of the URL.
func hiddenInputs(page *url.URL, set map[string]string, skip ...string) string {
	q := page.Query()
	for _, k := range skip {
		q.Del(k)
	}
	for k, v := range set {
		q.Set(k, v)
	}

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range q[k] {
			fmt.Fprintf(&b, `<input type="hidden" name="%s" value="%s"/>`, html.EscapeString(k), html.EscapeString(v))
		}
	}
	return b.String()
}

// wrapInStateForm turns btn into a submit button of a GET form that loads
// the same page with set applied and drop removed.
func wrapInStateForm(btn *goquery.Selection, page *url.URL, class string, set map[string]string, drop ...string) {
	btn.SetAttr("type", "submit")
	if btn.Closest("form").Length() > 0 {
		return
	}
	action := page.EscapedPath()
	if action == "" {
		action = "/"
	}
	btn.WrapHtml(fmt.Sprintf(`<form method="get" action="%s" class="%s inline"></form>`,
		html.EscapeString(action), class))
	btn.Parent().PrependHtml(hiddenInputs(page, set, drop...))
}
