package theme

import (
	"bytes"
	"context"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/hungpv1995/blog-frontkit/internal/debounce"
	"github.com/hungpv1995/blog-frontkit/internal/models"
	"go.uber.org/zap"
)

const (
	MinQueryLength     = 2
	DefaultSearchDelay = 300 * time.Millisecond
)

// Messages shown in the results area.
const (
	PlaceholderMessage = "Start typing to search posts..."
	LoadingMessage     = "Searching..."
	EmptyMessage       = "No posts found for your search."
	ErrorMessage       = "Search is temporarily unavailable. Please try again later."
)

// Searcher is the search API the modal queries.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

type SearchStatus int

const (
	StatusPlaceholder SearchStatus = iota
	StatusLoading
	StatusResults
	StatusEmpty
	StatusError
)

func (s SearchStatus) String() string {
	switch s {
	case StatusPlaceholder:
		return "placeholder"
	case StatusLoading:
		return "loading"
	case StatusResults:
		return "results"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// SearchView is what the results area shows.
type SearchView struct {
	Status  SearchStatus
	Query   string
	Results []models.SearchResult
	Err     error
}

// SearchModal drives the results area from typed input. Input is debounced;
// short queries never reach the search API.
type SearchModal struct {
	searcher Searcher
	render   func(SearchView)
	debounce *debounce.Debouncer
	timeout  time.Duration
	log      *zap.SugaredLogger

	mu   sync.Mutex
	seq  uint64
	view SearchView
}

type SearchOption func(*SearchModal)

func WithSearchDelay(d time.Duration) SearchOption {
	return func(m *SearchModal) { m.debounce = debounce.New(d) }
}

func WithSearchTimeout(d time.Duration) SearchOption {
	return func(m *SearchModal) { m.timeout = d }
}

func WithSearchLogger(log *zap.SugaredLogger) SearchOption {
	return func(m *SearchModal) { m.log = log }
}

// NewSearchModal returns a modal in the placeholder state. render is called
// for every state change; it may be nil.
func NewSearchModal(s Searcher, render func(SearchView), opts ...SearchOption) *SearchModal {
	if render == nil {
		render = func(SearchView) {}
	}
	m := &SearchModal{
		searcher: s,
		render:   render,
		debounce: debounce.New(DefaultSearchDelay),
		timeout:  10 * time.Second,
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// View returns the current state of the results area.
func (m *SearchModal) View() SearchView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

// Input handles the search box changing to raw.
func (m *SearchModal) Input(raw string) {
	query := strings.TrimSpace(raw)

	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	if len([]rune(query)) < MinQueryLength {
		m.debounce.Cancel()
		m.set(seq, SearchView{Status: StatusPlaceholder, Query: query})
		return
	}

	m.debounce.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		m.run(ctx, seq, query)
	})
}

// Submit runs query right away, bypassing the debounce, and returns the
// resulting view.
func (m *SearchModal) Submit(ctx context.Context, raw string) SearchView {
	query := strings.TrimSpace(raw)

	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.mu.Unlock()
	m.debounce.Cancel()

	if len([]rune(query)) < MinQueryLength {
		v := SearchView{Status: StatusPlaceholder, Query: query}
		m.set(seq, v)
		return v
	}
	return m.run(ctx, seq, query)
}

// Flush runs a pending debounced search now, on the caller's goroutine. It
// reports whether one was pending.
func (m *SearchModal) Flush() bool {
	return m.debounce.Flush()
}

// Close drops any pending search.
func (m *SearchModal) Close() {
	m.mu.Lock()
	m.seq++
	m.mu.Unlock()
	m.debounce.Cancel()
}

func (m *SearchModal) run(ctx context.Context, seq uint64, query string) SearchView {
	m.set(seq, SearchView{Status: StatusLoading, Query: query})

	results, err := m.searcher.Search(ctx, query)

	var v SearchView
	switch {
	case err != nil:
		m.log.Warnw("search failed", "query", query, "error", err)
		v = SearchView{Status: StatusError, Query: query, Err: err}
	case len(results) == 0:
		v = SearchView{Status: StatusEmpty, Query: query}
	default:
		v = SearchView{Status: StatusResults, Query: query, Results: results}
	}
	m.set(seq, v)
	return v
}

// set publishes v unless newer input has superseded seq.
func (m *SearchModal) set(seq uint64, v SearchView) {
	m.mu.Lock()
	if seq != m.seq {
		m.mu.Unlock()
		return
	}
	m.view = v
	m.mu.Unlock()
	m.render(v)
}

var searchMessages = map[string]string{
	"placeholder": PlaceholderMessage,
	"loading":     LoadingMessage,
	"empty":       EmptyMessage,
	"error":       ErrorMessage,
}

var searchTemplates = template.Must(template.New("search").Funcs(template.FuncMap{
	"msg": func(key string) string { return searchMessages[key] },
}).Parse(`
{{- define "results" -}}
{{- if eq .Status.String "loading" -}}
<div class="text-center py-8"><div class="animate-spin rounded-full h-8 w-8 border-b-2 border-blue-600 mx-auto mb-4"></div><p class="text-gray-500">{{msg "loading"}}</p></div>
{{- else if eq .Status.String "empty" -}}
<div class="text-center py-8 text-gray-500"><p>{{msg "empty"}}</p></div>
{{- else if eq .Status.String "error" -}}
<div class="text-center py-8 text-red-500"><p>{{msg "error"}}</p></div>
{{- else if eq .Status.String "results" -}}
{{- range .Results -}}
<a href="/blog/{{.Slug}}" class="block p-3 rounded-lg hover:bg-gray-50 dark:hover:bg-gray-700 transition-colors"><h3 class="font-semibold mb-1">{{.Title}}</h3><p class="text-sm text-gray-600 dark:text-gray-400 mb-2">{{.Excerpt}}</p><div class="text-xs text-gray-500">{{.Date}}</div></a>
{{- end -}}
{{- else -}}
<div class="text-center py-8 text-gray-500"><p>{{msg "placeholder"}}</p></div>
{{- end -}}
{{- end -}}

{{- define "modal" -}}
<div id="search-modal" class="{{if not .Open}}hidden {{end}}fixed inset-0 bg-black/50 backdrop-blur-sm z-50 flex items-start justify-center pt-20" role="dialog" aria-modal="true"{{if .Open}} data-escape-href="{{.Close}}"{{end}}>
<a href="{{.Close}}" class="absolute inset-0" tabindex="-1" aria-hidden="true"></a>
<div class="relative bg-white dark:bg-gray-800 rounded-2xl shadow-2xl w-full max-w-2xl mx-4 overflow-hidden">
<form method="get" action="{{.Action}}" class="flex items-center p-4 border-b border-gray-200 dark:border-gray-700">{{.Hidden}}
<input type="text" name="q" value="{{.Query}}" placeholder="Search posts..." autocomplete="off"{{if .Open}} autofocus{{end}} class="flex-1 bg-transparent outline-none text-gray-900 dark:text-gray-100"/>
<a href="{{.Close}}" class="ml-3 text-gray-400 hover:text-gray-600" data-close-modal aria-label="Close search">&times;</a>
</form>
<div class="max-h-80 overflow-y-auto p-4" id="search-results">{{template "results" .View}}</div>
</div>
</div>
{{- end -}}
`))

// RenderSearchView renders the results area for v as an HTML fragment.
func RenderSearchView(v SearchView) (string, error) {
	var buf bytes.Buffer
	if err := searchTemplates.ExecuteTemplate(&buf, "results", v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type searchModalData struct {
	Open   bool
	Action string
	Hidden template.HTML
	Query  string
	Close  string
	View   SearchView
}

// renderSearchModal renders the modal for st. Submitting its form reloads
// the page with the modal open and the results filled in.
func renderSearchModal(st State) string {
	action := st.Page.EscapedPath()
	if action == "" {
		action = "/"
	}
	view := SearchView{Status: StatusPlaceholder}
	if st.SearchOpen {
		view = st.Search
	}
	data := searchModalData{
		Open:   st.SearchOpen,
		Action: action,
		// built from escaped values only
		Hidden: template.HTML(hiddenInputs(st.Page, map[string]string{SearchParam: openValue}, QueryParam)),
		Query:  st.SearchQuery,
		Close:  searchCloseLink(st.Page),
		View:   view,
	}

	var buf bytes.Buffer
	// the template is static and the data cannot fail to render
	_ = searchTemplates.ExecuteTemplate(&buf, "modal", data)
	return buf.String()
}
