package theme

import (
	"encoding/json"
	"strings"
	"sync"
)

type scriptConfig struct {
	BackToTopOffset int    `json:"backToTopOffset"`
	NavbarOffset    int    `json:"navbarOffset"`
	CopyLabel       string `json:"copyLabel"`
	CopiedLabel     string `json:"copiedLabel"`
	CopyResetMs     int64  `json:"copyResetMs"`
	MinQueryLength  int    `json:"minQueryLength"`
	SearchDelayMs   int64  `json:"searchDelayMs"`
	MenuIcon        string `json:"menuIcon"`
	CloseIcon       string `json:"closeIcon"`
	Placeholder     string `json:"placeholder"`
	Loading         string `json:"loading"`
	Failed          string `json:"failed"`
}

// scriptSource runs after the server-side setup. It only adds what needs the
// browser: live search, scrolling, clipboard and in-place toggling. Every
// control it takes over still works as a plain link or form without it.
const scriptSource = `(function () {
  "use strict";
  var cfg = __CONFIG__;
  var tag = document.querySelector("script[data-theme-script]");
  var searchURL = (tag && tag.getAttribute("data-search-url")) || "/_search";
  var root = document.documentElement;

  function byId(id) { return document.getElementById(id); }

  // theme toggle: the cookie set by the toggle endpoint is the only record
  document.querySelectorAll("form.theme-toggle-form").forEach(function (form) {
    form.addEventListener("submit", function (e) {
      e.preventDefault();
      fetch(form.action, { method: "POST", headers: { "Accept": "application/json" }, credentials: "same-origin" })
        .then(function (r) { if (!r.ok) { throw new Error(r.status); } return r.json(); })
        .then(function (p) {
          root.classList.toggle("dark", p.theme === "dark");
          root.setAttribute("data-theme", p.theme);
          var btn = byId("theme-toggle");
          if (btn) {
            btn.setAttribute("aria-pressed", String(p.theme === "dark"));
            btn.setAttribute("aria-label", "Switch to " + (p.theme === "dark" ? "light" : "dark") + " mode");
          }
        })
        .catch(function () { form.submit(); });
    });
  });

  // mobile menu
  var menu = byId("mobile-menu");
  var menuBtn = byId("mobile-menu-btn");
  function setMenu(open) {
    if (!menu || !menuBtn) { return; }
    menu.classList.toggle("open", open);
    if (!open) { menu.removeAttribute("data-escape-href"); }
    menuBtn.setAttribute("aria-expanded", String(open));
    var icon = menuBtn.querySelector("svg");
    if (icon) { icon.innerHTML = open ? cfg.closeIcon : cfg.menuIcon; }
    var backdrop = document.querySelector("a.mobile-menu-backdrop");
    if (backdrop && !open) { backdrop.remove(); }
  }
  if (menu && menuBtn) {
    var menuForm = menuBtn.closest("form.mobile-menu-form");
    if (menuForm) {
      menuForm.addEventListener("submit", function (e) {
        e.preventDefault();
        setMenu(!menu.classList.contains("open"));
      });
    }
    document.addEventListener("click", function (e) {
      if (menu.classList.contains("open") && !menu.contains(e.target) && !menuBtn.contains(e.target)) {
        e.preventDefault();
        setMenu(false);
      }
    });
  }

  // search modal
  var modal = byId("search-modal");
  var results = byId("search-results");
  var input = modal ? modal.querySelector("input[name=q]") : null;
  var seq = 0;
  var timer = null;
  function openSearch() {
    if (!modal) { return; }
    modal.classList.remove("hidden");
    if (input) { input.focus(); }
  }
  function closeSearch() {
    if (!modal) { return; }
    modal.classList.add("hidden");
    modal.removeAttribute("data-escape-href");
    clearTimeout(timer);
    seq++;
    if (input) { input.value = ""; }
    if (results) { results.innerHTML = cfg.placeholder; }
  }
  function runSearch(q) {
    var mine = ++seq;
    results.innerHTML = cfg.loading;
    fetch(searchURL + "?q=" + encodeURIComponent(q), { headers: { "Accept": "text/html" } })
      .then(function (r) { if (!r.ok) { throw new Error(r.status); } return r.text(); })
      .then(function (html) { if (mine === seq) { results.innerHTML = html; } })
      .catch(function () { if (mine === seq) { results.innerHTML = cfg.failed; } });
  }
  if (modal) {
    var toggleForm = document.querySelector("form.search-toggle-form");
    if (toggleForm) {
      toggleForm.addEventListener("submit", function (e) { e.preventDefault(); openSearch(); });
    }
    modal.querySelectorAll("a[data-close-modal], a[aria-hidden=true]").forEach(function (a) {
      a.addEventListener("click", function (e) { e.preventDefault(); closeSearch(); });
    });
    if (input && results) {
      input.addEventListener("input", function () {
        var q = input.value.trim();
        clearTimeout(timer);
        if (q.length < cfg.minQueryLength) {
          seq++;
          results.innerHTML = cfg.placeholder;
          return;
        }
        timer = setTimeout(function () { runSearch(q); }, cfg.searchDelayMs);
      });
    }
  }

  // lightbox
  function closeLightbox() {
    var box = byId("lightbox");
    if (box) { box.remove(); }
  }
  document.querySelectorAll("a.lightbox-link").forEach(function (a) {
    a.addEventListener("click", function (e) {
      var img = a.querySelector("img");
      if (!img) { return; }
      e.preventDefault();
      closeLightbox();
      var box = document.createElement("div");
      box.id = "lightbox";
      box.className = "fixed inset-0 bg-black/90 z-50 flex items-center justify-center p-4";
      box.setAttribute("role", "dialog");
      var big = document.createElement("img");
      big.src = img.getAttribute("data-lightbox") || img.src;
      big.alt = a.getAttribute("data-lightbox-alt") || "";
      big.className = "max-w-full max-h-full object-contain";
      box.appendChild(big);
      box.addEventListener("click", closeLightbox);
      document.body.appendChild(box);
    });
  });

  // keyboard
  document.addEventListener("keydown", function (e) {
    if ((e.ctrlKey || e.metaKey) && (e.key === "k" || e.key === "K")) {
      if (modal) { e.preventDefault(); openSearch(); }
      return;
    }
    if (e.key !== "Escape") { return; }
    var served = document.querySelector("[data-escape-href]");
    if (served) { window.location.href = served.getAttribute("data-escape-href"); return; }
    if (modal && !modal.classList.contains("hidden")) { closeSearch(); return; }
    if (byId("lightbox")) { closeLightbox(); return; }
    if (menu && menu.classList.contains("open")) { setMenu(false); }
  });

  // scrolling
  var backToTop = byId("back-to-top");
  var navbar = document.querySelector(".navbar");
  function onScroll() {
    var y = window.pageYOffset;
    if (backToTop) {
      var show = y > cfg.backToTopOffset;
      backToTop.classList.toggle("opacity-100", show);
      backToTop.classList.toggle("visible", show);
      backToTop.classList.toggle("opacity-0", !show);
      backToTop.classList.toggle("invisible", !show);
    }
    if (navbar) { navbar.classList.toggle("navbar-scrolled", y > cfg.navbarOffset); }
  }
  window.addEventListener("scroll", onScroll, { passive: true });
  if (backToTop) {
    backToTop.addEventListener("click", function (e) {
      e.preventDefault();
      window.scrollTo({ top: 0, behavior: "smooth" });
    });
  }
  document.querySelectorAll('a[href^="#"]').forEach(function (a) {
    a.addEventListener("click", function (e) {
      var href = a.getAttribute("href");
      var target = href.length > 1 ? document.getElementById(href.slice(1)) : null;
      if (target) { e.preventDefault(); target.scrollIntoView({ behavior: "smooth", block: "start" }); }
    });
  });
  onScroll();

  // code copy buttons
  document.querySelectorAll("button.copy-code").forEach(function (btn) {
    btn.addEventListener("click", function () {
      var code = btn.parentElement.querySelector("code");
      if (!code || !navigator.clipboard) { return; }
      navigator.clipboard.writeText(code.textContent).then(function () {
        btn.textContent = cfg.copiedLabel;
        setTimeout(function () { btn.textContent = cfg.copyLabel; }, cfg.copyResetMs);
      }, function () {});
    });
  });
})();
`

var (
	scriptOnce sync.Once
	scriptBody []byte
)

// Script returns the page script served at ScriptEndpoint. Its thresholds,
// labels and messages come from this package so the script and the server
// rendering never disagree.
func Script() []byte {
	scriptOnce.Do(func() {
		placeholder, _ := RenderSearchView(SearchView{Status: StatusPlaceholder})
		loading, _ := RenderSearchView(SearchView{Status: StatusLoading})
		failed, _ := RenderSearchView(SearchView{Status: StatusError})

		cfg, _ := json.Marshal(scriptConfig{
			BackToTopOffset: BackToTopOffset,
			NavbarOffset:    NavbarOffset,
			CopyLabel:       CopyLabel,
			CopiedLabel:     CopiedLabel,
			CopyResetMs:     CopyResetTimeout.Milliseconds(),
			MinQueryLength:  MinQueryLength,
			SearchDelayMs:   DefaultSearchDelay.Milliseconds(),
			MenuIcon:        menuIconPath,
			CloseIcon:       closeIconPath,
			Placeholder:     placeholder,
			Loading:         loading,
			Failed:          failed,
		})
		scriptBody = []byte(strings.Replace(scriptSource, "__CONFIG__", string(cfg), 1))
	})
	return scriptBody
}
