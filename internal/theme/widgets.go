package theme

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

type themeToggle struct{}

func (themeToggle) Name() string { return "theme-toggle" }

func (themeToggle) Setup(doc *Document, st State) bool {
	btn, ok := doc.ByID("theme-toggle")
	if !ok {
		return false
	}

	mode := st.Preference.Effective()
	root := doc.Root()
	if mode == Dark {
		root.AddClass("dark")
	} else {
		root.RemoveClass("dark")
	}
	root.SetAttr("data-theme", mode.String())

	btn.SetAttr("type", "submit")
	btn.SetAttr("aria-pressed", strconv.FormatBool(mode == Dark))
	btn.SetAttr("aria-label", fmt.Sprintf("Switch to %s mode", mode.Toggle()))

	if btn.Closest("form").Length() == 0 && st.ToggleURL != "" {
		btn.WrapHtml(fmt.Sprintf(`<form method="post" action="%s" class="theme-toggle-form inline"></form>`,
			html.EscapeString(st.ToggleURL)))
		btn.Parent().PrependHtml(returnToInput(st.ReturnTo))
	}

	if st.Preference.HasExplicit && st.ResetURL != "" && doc.All("form.theme-reset-form").Length() == 0 {
		anchor := btn
		if form := btn.Closest("form"); form.Length() > 0 {
			anchor = form
		}
		anchor.AfterHtml(fmt.Sprintf(`<form method="post" action="%s" class="theme-reset-form inline">%s`+
			`<button type="submit" class="text-xs text-gray-500 hover:text-gray-700" aria-label="Use system theme">Auto</button></form>`,
			html.EscapeString(st.ResetURL), returnToInput(st.ReturnTo)))
	}
	return true
}

func returnToInput(returnTo string) string {
	return fmt.Sprintf(`<input type="hidden" name="return_to" value="%s"/>`, html.EscapeString(returnTo))
}

type mobileMenu struct{}

func (mobileMenu) Name() string { return "mobile-menu" }

func (mobileMenu) Setup(doc *Document, st State) bool {
	btn, okBtn := doc.ByID("mobile-menu-btn")
	menu, okMenu := doc.ByID("mobile-menu")
	if !okBtn || !okMenu {
		return false
	}

	btn.SetAttr("aria-controls", "mobile-menu")
	btn.SetAttr("aria-expanded", strconv.FormatBool(st.Menu.Open))
	if icon := btn.Find("svg").First(); icon.Length() > 0 {
		icon.SetHtml(st.Menu.Icon())
	}

	next := st.Menu
	next.ClickButton()
	if next.Open {
		wrapInStateForm(btn, st.Page, "mobile-menu-form", map[string]string{MenuParam: openValue})
	} else {
		wrapInStateForm(btn, st.Page, "mobile-menu-form", nil, MenuParam)
	}

	if !st.Menu.Open {
		menu.RemoveClass("open")
		menu.RemoveAttr("data-escape-href")
		return true
	}

	menu.AddClass("open")
	esc := st.Menu
	esc.KeyDown("Escape")
	menu.SetAttr("data-escape-href", menuLink(st.Page, esc))
	if doc.All("a.mobile-menu-backdrop").Length() == 0 {
		outside := st.Menu
		outside.ClickOutside()
		menu.BeforeHtml(fmt.Sprintf(`<a href="%s" class="mobile-menu-backdrop" aria-label="Close menu"></a>`,
			html.EscapeString(menuLink(st.Page, outside))))
	}
	return true
}

type searchToggle struct{}

func (searchToggle) Name() string { return "search" }

func (searchToggle) Setup(doc *Document, st State) bool {
	toggle, ok := doc.ByID("search-toggle")
	if !ok {
		return false
	}

	toggle.SetAttr("aria-haspopup", "dialog")
	toggle.SetAttr("aria-controls", "search-modal")
	toggle.SetAttr("aria-expanded", strconv.FormatBool(st.SearchOpen))
	toggle.SetAttr("aria-keyshortcuts", "Control+K Meta+K")
	wrapInStateForm(toggle, st.Page, "search-toggle-form", map[string]string{SearchParam: openValue}, QueryParam)

	_, hasModal := doc.ByID("search-modal")
	_, hasResults := doc.ByID("search-results")
	if !hasModal && !hasResults {
		doc.Body().AppendHtml(renderSearchModal(st))
	}
	return true
}

type scrollEffects struct{}

func (scrollEffects) Name() string { return "scroll-effects" }

func (scrollEffects) Setup(doc *Document, _ State) bool {
	var top ScrollState
	applied := false

	if btn, ok := doc.ByID("back-to-top"); ok {
		add, remove := top.BackToTopClasses()
		btn.RemoveClass(remove...)
		btn.AddClass(add...)
		btn.SetAttr("data-scroll-target", "top")
		btn.SetAttr("data-scroll-offset", strconv.Itoa(BackToTopOffset))
		applied = true
	}

	if nav, ok := doc.First(".navbar"); ok {
		if top.NavbarScrolled() {
			nav.AddClass("navbar-scrolled")
		} else {
			nav.RemoveClass("navbar-scrolled")
		}
		nav.SetAttr("data-scroll-offset", strconv.Itoa(NavbarOffset))
		applied = true
	}
	return applied
}

type animations struct{}

func (animations) Name() string { return "animations" }

func (animations) Setup(doc *Document, _ State) bool {
	els := doc.All(".blog-post, .hero, .admin-dashboard > *")
	els.AddClass("animate-fade-in")
	return els.Length() > 0
}

type tooltips struct{}

func (tooltips) Name() string { return "tooltips" }

func (tooltips) Setup(doc *Document, _ State) bool {
	els := doc.All("[data-tooltip]")
	els.Each(func(_ int, el *goquery.Selection) {
		text := strings.TrimSpace(el.AttrOr("data-tooltip", ""))
		if text == "" {
			return
		}
		if _, ok := el.Attr("title"); !ok {
			el.SetAttr("title", text)
		}
		if _, ok := el.Attr("aria-label"); !ok {
			el.SetAttr("aria-label", text)
		}
	})
	return els.Length() > 0
}

const copyButtonHTML = `<button type="button" class="copy-code absolute top-2 right-2 px-2 py-1 text-xs bg-gray-700 text-white rounded opacity-0 hover:opacity-100 transition-opacity">` + CopyLabel + `</button>`

type codeBlocks struct{}

func (codeBlocks) Name() string { return "code-blocks" }

func (codeBlocks) Setup(doc *Document, _ State) bool {
	blocks := doc.All("pre code")
	blocks.Each(func(_ int, code *goquery.Selection) {
		pre := code.Parent()
		if !pre.Is("pre") {
			return
		}
		pre.AddClass("relative")
		if pre.ChildrenFiltered("button.copy-code").Length() == 0 {
			pre.AppendHtml(copyButtonHTML)
		}
	})
	return blocks.Length() > 0
}

type imageLightbox struct{}

func (imageLightbox) Name() string { return "lightbox" }

// Setup links every article image to the same page with the lightbox open
// on it. The overlay is only rendered for a source the article really shows.
func (imageLightbox) Setup(doc *Document, st State) bool {
	imgs := doc.All("article img")
	shown := false
	imgs.Each(func(_ int, img *goquery.Selection) {
		src := img.AttrOr("src", "")
		if src == "" {
			return
		}
		alt := img.AttrOr("alt", "")
		style := strings.TrimRight(strings.TrimSpace(img.AttrOr("style", "")), ";")
		if !strings.Contains(style, "cursor") {
			if style != "" {
				style += "; "
			}
			img.SetAttr("style", style+"cursor: pointer")
		}
		img.SetAttr("data-lightbox", src)
		if st.Lightbox.Open && st.Lightbox.Src == src {
			shown = true
		}

		if img.Parent().Is("a") {
			return
		}
		var open Lightbox
		open.Show(src, alt)
		img.WrapHtml(fmt.Sprintf(`<a href="%s" class="lightbox-link" data-lightbox-alt="%s"></a>`,
			html.EscapeString(lightboxLink(st.Page, open)), html.EscapeString(alt)))
	})

	if shown {
		if _, exists := doc.ByID("lightbox"); !exists {
			doc.Body().AppendHtml(renderLightbox(st))
		}
	}
	return imgs.Length() > 0
}

func renderLightbox(st State) string {
	closed := st.Lightbox
	closed.Close()
	esc := st.Lightbox
	esc.KeyDown("Escape")

	closeHref := html.EscapeString(lightboxLink(st.Page, closed))
	return fmt.Sprintf(`<div id="lightbox" class="fixed inset-0 bg-black/90 z-50 flex items-center justify-center p-4" role="dialog" aria-modal="true" data-escape-href="%s">`+
		`<a href="%s" class="absolute inset-0" tabindex="-1" aria-hidden="true"></a>`+
		`<img src="%s" alt="%s" class="relative max-w-full max-h-full object-contain"/>`+
		`<a href="%s" class="absolute top-4 right-4 text-white text-4xl hover:text-gray-300" aria-label="Close image">&times;</a>`+
		`</div>`,
		html.EscapeString(lightboxLink(st.Page, esc)), closeHref,
		html.EscapeString(st.Lightbox.Src), html.EscapeString(st.Lightbox.Alt), closeHref)
}

type footerYear struct{}

func (footerYear) Name() string { return "footer-year" }

func (footerYear) Setup(doc *Document, st State) bool {
	el, ok := doc.ByID("current-year")
	if !ok {
		return false
	}
	el.SetText(strconv.Itoa(st.Year))
	return true
}

const themeStyles = `
.navbar-scrolled {
	backdrop-filter: blur(20px);
	background: rgba(255, 255, 255, 0.9);
	box-shadow: 0 1px 3px rgba(0, 0, 0, 0.1);
}
.dark .navbar-scrolled {
	background: rgba(3, 7, 18, 0.9);
	box-shadow: 0 1px 3px rgba(255, 255, 255, 0.1);
}
.mobile-menu-backdrop {
	position: fixed;
	inset: 0;
	z-index: 40;
}
#mobile-menu.open {
	display: block;
	position: relative;
	z-index: 45;
}
.animate-fade-in {
	animation: fade-in 0.6s ease-out forwards;
}
@keyframes fade-in {
	from { opacity: 0; transform: translateY(20px); }
	to { opacity: 1; transform: translateY(0); }
}
`

type styles struct{}

func (styles) Name() string { return "styles" }

func (styles) Setup(doc *Document, _ State) bool {
	head := doc.Head()
	if head.Length() == 0 {
		return false
	}
	if head.Find("style[data-theme-styles]").Length() == 0 {
		head.AppendHtml(`<style data-theme-styles>` + themeStyles + `</style>`)
	}
	return true
}

// upstreamScript is the blog's own theme script. The page script replaces it.
const upstreamScript = "modern-theme.js"

type pageScript struct{}

func (pageScript) Name() string { return "script" }

// Setup swaps the blog's theme script for the proxy's, so the toggle cookie
// is the only place the colour scheme is kept.
func (pageScript) Setup(doc *Document, st State) bool {
	doc.All("script[src]").Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if u, err := url.Parse(src); err == nil && path.Base(u.Path) == upstreamScript {
			s.Remove()
		}
	})

	if doc.All("script[data-theme-script]").Length() > 0 {
		return true
	}
	tag := fmt.Sprintf(`<script src="%s" defer data-theme-script data-search-url="%s" data-toggle-url="%s"></script>`,
		html.EscapeString(ScriptEndpoint), html.EscapeString(st.SearchURL), html.EscapeString(st.ToggleURL))
	if head := doc.Head(); head.Length() > 0 {
		head.AppendHtml(tag)
	} else {
		doc.Body().AppendHtml(tag)
	}
	return true
}
