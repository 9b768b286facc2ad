package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hungpv1995/blog-frontkit/internal/models"
	"github.com/hungpv1995/blog-frontkit/internal/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testClientID = "6f1d7c3e-2a4b-4c5d-9e8f-0a1b2c3d4e5f"

const blogPage = `<!DOCTYPE html><html><head><title>Blog</title></head><body>
<button id="theme-toggle">Theme</button>
<pre><code>go test</code></pre>
</body></html>`

// themedPage carries the blog's own theme script and search toggle.
const themedPage = `<!DOCTYPE html><html><head><title>Blog</title></head><body>
<nav class="navbar">
<button id="theme-toggle">Theme</button>
<button id="search-toggle">Search</button>
<button id="mobile-menu-btn"><svg></svg></button>
<div id="mobile-menu" class="hidden"><a href="/">Home</a></div>
</nav>
<article><p>Post</p></article>
<script src="/static/js/modern-theme.js"></script>
</body></html>`

type memStore struct {
	mu    sync.Mutex
	modes map[string]theme.Mode
	err   error
}

func newMemStore() *memStore {
	return &memStore{modes: map[string]theme.Mode{}}
}

func (s *memStore) Load(_ context.Context, id string) (theme.Mode, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", false, s.err
	}
	m, ok := s.modes[id]
	return m, ok, nil
}

func (s *memStore) Invalidate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.modes, id)
	return nil
}

func (s *memStore) Save(_ context.Context, id string, m theme.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.modes[id] = m
	return nil
}

type stubSearcher struct {
	results []models.SearchResult
	err     error
}

func (s stubSearcher) Search(context.Context, string) ([]models.SearchResult, error) {
	return s.results, s.err
}

type upstreamRequest struct {
	path           string
	rawQuery       string
	acceptEncoding string
	forwardedHost  string
}

func newUpstream(t *testing.T) (*httptest.Server, *[]upstreamRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []upstreamRequest
	)
	record := func(r *http.Request) {
		mu.Lock()
		seen = append(seen, upstreamRequest{
			path:           r.URL.Path,
			rawQuery:       r.URL.RawQuery,
			acceptEncoding: r.Header.Get("Accept-Encoding"),
			forwardedHost:  r.Header.Get("X-Forwarded-Host"),
		})
		mu.Unlock()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("ETag", `"abc"`)
		io.WriteString(w, blogPage)
	})
	mux.HandleFunc("/themed", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, themedPage)
	})
	mux.HandleFunc("/api/posts/load-more", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"Posts":[]}`)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, "<html><body><button id=\"theme-toggle\"></button></body></html>")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &seen
}

func newTestRouter(t *testing.T, upstream string, store theme.Store, searcher theme.Searcher) http.Handler {
	t.Helper()
	u, err := url.Parse(upstream)
	require.NoError(t, err)

	log := zap.NewNop().Sugar()
	themes := NewThemeHandler(store, log, false)
	controller := theme.NewController(theme.WithClock(func() time.Time {
		return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}))
	search := NewSearchHandler(searcher, time.Second, log)
	proxy := NewProxyHandler(u, controller, themes.Preference, search, log)
	return NewRouter(proxy, themes, search, false)
}

func withClient(r *http.Request) *http.Request {
	r.AddCookie(&http.Cookie{Name: ClientIDCookie, Value: testClientID})
	return r
}

func TestProxy_EnhancesHTML(t *testing.T) {
	up, seen := newUpstream(t)
	router := newTestRouter(t, up.URL, nil, stubSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/blog/first?ref=home", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.AddCookie(&http.Cookie{Name: theme.StorageKey, Value: "dark"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `class="dark"`)
	assert.Contains(t, body, `data-theme-ready="true"`)
	assert.Contains(t, body, `value="/blog/first?ref=home"`)
	assert.Contains(t, body, "copy-code")
	assert.Equal(t, strconv.Itoa(len(body)), rec.Header().Get("Content-Length"))
	assert.Equal(t, theme.SystemHint, rec.Header().Get("Accept-CH"))
	assert.Empty(t, rec.Header().Get("ETag"))

	require.Len(t, *seen, 1)
	assert.Empty(t, (*seen)[0].acceptEncoding)
	assert.Equal(t, "example.com", (*seen)[0].forwardedHost)

	var issued bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == ClientIDCookie {
			issued = true
		}
	}
	assert.True(t, issued)
}

func TestProxy_SearchToggleOpensSingleModal(t *testing.T) {
	up, _ := newUpstream(t)
	router := newTestRouter(t, up.URL, nil, stubSearcher{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/themed", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	doc, err := theme.ParseDocument(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.All("#search-results").Length())
	assert.Equal(t, 1, doc.All("#search-modal").Length())
	assert.Equal(t, 0, doc.All(`script[src*="modern-theme.js"]`).Length())
	assert.Equal(t, 1, doc.All(`script[src="/_theme/theme.js"]`).Length())

	// without the script the toggle submits to the same page with the
	// modal open
	form := doc.All("form.search-toggle-form")
	require.Equal(t, 1, form.Length())
	assert.Equal(t, "/themed", form.AttrOr("action", ""))
	assert.Equal(t, "get", form.AttrOr("method", ""))
	assert.Equal(t, "open", form.Find(`input[name="_search"]`).AttrOr("value", ""))
	assert.Equal(t, 1, form.Find("#search-toggle").Length())
}

func TestProxy_SearchOpenRendersResults(t *testing.T) {
	up, seen := newUpstream(t)
	results := []models.SearchResult{{Slug: "cloud-ml", Title: "Cloud ML"}}
	router := newTestRouter(t, up.URL, nil, stubSearcher{results: results})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/themed?_search=open&q=cloud", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	doc, err := theme.ParseDocument(rec.Body)
	require.NoError(t, err)
	modal, ok := doc.ByID("search-modal")
	require.True(t, ok)
	assert.False(t, modal.HasClass("hidden"))
	assert.Equal(t, "/blog/cloud-ml", modal.Find("#search-results a").AttrOr("href", ""))
	assert.Equal(t, "/themed", modal.Find("a[data-close-modal]").AttrOr("href", ""))

	require.Len(t, *seen, 1)
	assert.Equal(t, "/themed", (*seen)[0].path)
	assert.Empty(t, (*seen)[0].rawQuery)
}

func TestProxy_MenuStateStaysOnProxy(t *testing.T) {
	up, seen := newUpstream(t)
	router := newTestRouter(t, up.URL, nil, stubSearcher{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/themed?ref=home&_menu=open", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	doc, err := theme.ParseDocument(rec.Body)
	require.NoError(t, err)
	menu, _ := doc.ByID("mobile-menu")
	assert.True(t, menu.HasClass("open"))
	assert.Equal(t, "/themed?ref=home", menu.AttrOr("data-escape-href", ""))
	assert.Equal(t, "/themed?ref=home", doc.All("a.mobile-menu-backdrop").AttrOr("href", ""))

	require.Len(t, *seen, 1)
	assert.Equal(t, "ref=home", (*seen)[0].rawQuery)
}

func TestProxy_PassesThroughNonHTML(t *testing.T) {
	up, _ := newUpstream(t)
	router := newTestRouter(t, up.URL, nil, stubSearcher{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts/load-more?offset=0", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"Posts":[]}`, rec.Body.String())
}

func TestProxy_LeavesErrorPagesAlone(t *testing.T) {
	up, _ := newUpstream(t)
	router := newTestRouter(t, up.URL, nil, stubSearcher{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "data-theme-ready")
}

func TestProxy_UpstreamDown(t *testing.T) {
	up, _ := newUpstream(t)
	addr := up.URL
	up.Close()
	router := newTestRouter(t, addr, nil, stubSearcher{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestProxy_UsesStoredPreference(t *testing.T) {
	up, _ := newUpstream(t)
	store := newMemStore()
	store.modes[testClientID] = theme.Dark
	router := newTestRouter(t, up.URL, store, stubSearcher{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withClient(httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Contains(t, rec.Body.String(), `class="dark"`)
}

func TestToggle_JSON(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(t, "http://127.0.0.1:1", store, stubSearcher{})

	req := withClient(httptest.NewRequest(http.MethodPost, "/_theme/toggle", nil))
	req.Header.Set("Accept", "application/json")
	req.Header.Set(theme.SystemHint, "dark")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got themeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, theme.Light, got.Theme)
	assert.True(t, got.Explicit)
	assert.True(t, got.SystemDark)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == theme.StorageKey {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, "light", cookie.Value)
	assert.Equal(t, theme.Light, store.modes[testClientID])
}

func TestToggle_FormRedirects(t *testing.T) {
	router := newTestRouter(t, "http://127.0.0.1:1", nil, stubSearcher{})

	tests := []struct {
		returnTo string
		want     string
	}{
		{"/blog/first", "/blog/first"},
		{"//evil.example", "/"},
		{"https://evil.example/", "/"},
		{"", "/"},
	}
	for _, tc := range tests {
		form := url.Values{"return_to": {tc.returnTo}}
		req := httptest.NewRequest(http.MethodPost, "/_theme/toggle", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: theme.StorageKey, Value: "light"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code, tc.returnTo)
		assert.Equal(t, tc.want, rec.Header().Get("Location"), tc.returnTo)
	}
}

func TestToggle_StoreFailureStillSetsCookie(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("redis down")
	router := newTestRouter(t, "http://127.0.0.1:1", store, stubSearcher{})

	req := withClient(httptest.NewRequest(http.MethodPost, "/_theme/toggle", nil))
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Values("Set-Cookie"), "theme=dark; Path=/; Max-Age=31536000; SameSite=Lax")
	var got themeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, theme.Dark, got.Theme)
}

func TestReset(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		store := newMemStore()
		store.modes[testClientID] = theme.Light
		router := newTestRouter(t, "http://127.0.0.1:1", store, stubSearcher{})

		req := withClient(httptest.NewRequest(http.MethodPost, "/_theme/reset", nil))
		req.Header.Set("Accept", "application/json")
		req.Header.Set(theme.SystemHint, "dark")
		req.AddCookie(&http.Cookie{Name: theme.StorageKey, Value: "light"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var got themeResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, themeResponse{Theme: theme.Dark, SystemDark: true}, got)
		assert.Contains(t, rec.Header().Values("Set-Cookie"), "theme=; Path=/; Max-Age=0; SameSite=Lax")
		assert.NotContains(t, store.modes, testClientID)
	})

	t.Run("form", func(t *testing.T) {
		router := newTestRouter(t, "http://127.0.0.1:1", nil, stubSearcher{})

		form := url.Values{"return_to": {"/blog/first"}}
		req := httptest.NewRequest(http.MethodPost, "/_theme/reset", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/blog/first", rec.Header().Get("Location"))
	})

	t.Run("store failure", func(t *testing.T) {
		store := newMemStore()
		store.err = errors.New("redis down")
		router := newTestRouter(t, "http://127.0.0.1:1", store, stubSearcher{})

		req := withClient(httptest.NewRequest(http.MethodPost, "/_theme/reset", nil))
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestScriptEndpoint(t *testing.T) {
	router := newTestRouter(t, "http://127.0.0.1:1", nil, stubSearcher{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_theme/theme.js", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/javascript")
	assert.Equal(t, string(theme.Script()), rec.Body.String())
}

func TestCurrent(t *testing.T) {
	store := newMemStore()
	store.modes[testClientID] = theme.Dark
	router := newTestRouter(t, "http://127.0.0.1:1", store, stubSearcher{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withClient(httptest.NewRequest(http.MethodGet, "/_theme", nil)))

	var got themeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, themeResponse{Theme: theme.Dark, Explicit: true}, got)

	// the cookie wins over the mirror
	req := withClient(httptest.NewRequest(http.MethodGet, "/_theme", nil))
	req.AddCookie(&http.Cookie{Name: theme.StorageKey, Value: "light"})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, theme.Light, got.Theme)
}

func TestSearch(t *testing.T) {
	results := []models.SearchResult{{Slug: "cloud-ml", Title: "Cloud ML", Excerpt: "…", Date: "May 2, 2024"}}

	t.Run("fragment", func(t *testing.T) {
		router := newTestRouter(t, "http://127.0.0.1:1", nil, stubSearcher{results: results})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_search?q=cloud", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), `href="/blog/cloud-ml"`)
	})

	t.Run("short query", func(t *testing.T) {
		router := newTestRouter(t, "http://127.0.0.1:1", nil, stubSearcher{err: errors.New("must not be called")})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_search?q=c", nil))
		assert.Contains(t, rec.Body.String(), "Start typing to search posts...")
	})

	t.Run("json error", func(t *testing.T) {
		router := newTestRouter(t, "http://127.0.0.1:1", nil, stubSearcher{err: errors.New("boom")})
		req := httptest.NewRequest(http.MethodGet, "/_search?q=cloud", nil)
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		var got searchResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "error", got.Status)
		assert.Empty(t, got.Results)
	})

	t.Run("json empty", func(t *testing.T) {
		router := newTestRouter(t, "http://127.0.0.1:1", nil, stubSearcher{})
		req := httptest.NewRequest(http.MethodGet, "/_search?q=nothing", nil)
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"empty","query":"nothing","results":[]}`, rec.Body.String())
	})
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, "http://127.0.0.1:1", nil, stubSearcher{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_health", nil))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "frontkit_upstream_errors_total")
}

func TestClientID_KeepsValidCookie(t *testing.T) {
	var seen string
	h := ClientID(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withClient(httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Equal(t, testClientID, seen)
	assert.Empty(t, rec.Header().Get("Set-Cookie"))

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.AddCookie(&http.Cookie{Name: ClientIDCookie, Value: "not-a-uuid"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, bad)
	assert.NotEqual(t, "not-a-uuid", seen)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), ClientIDCookie+"="+seen)
}
