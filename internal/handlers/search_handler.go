package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/hungpv1995/blog-frontkit/internal/models"
	"github.com/hungpv1995/blog-frontkit/internal/theme"
	"go.uber.org/zap"
)

type SearchHandler struct {
	searcher theme.Searcher
	timeout  time.Duration
	log      *zap.SugaredLogger
}

func NewSearchHandler(searcher theme.Searcher, timeout time.Duration, log *zap.SugaredLogger) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		timeout:  timeout,
		log:      log,
	}
}

type searchResponse struct {
	Status  string                `json:"status"`
	Query   string                `json:"query"`
	Results []models.SearchResult `json:"results"`
}

// View runs one search for raw, as the modal would on submit.
func (h *SearchHandler) View(ctx context.Context, raw string) theme.SearchView {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	modal := theme.NewSearchModal(h.searcher, nil, theme.WithSearchLogger(h.log))
	view := modal.Submit(ctx, raw)
	SearchRequests.WithLabelValues(view.Status.String()).Inc()
	return view
}

// ServeHTTP handles GET /_search?q=<query>
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	view := h.View(r.Context(), r.URL.Query().Get("q"))

	if wantsJSON(r) {
		code := http.StatusOK
		if view.Status == theme.StatusError {
			code = http.StatusBadGateway
		}
		results := view.Results
		if results == nil {
			results = []models.SearchResult{}
		}
		writeJSON(w, code, searchResponse{
			Status:  view.Status.String(),
			Query:   view.Query,
			Results: results,
		})
		return
	}

	fragment, err := theme.RenderSearchView(view)
	if err != nil {
		h.log.Errorw("failed to render search results", "error", err)
		http.Error(w, "Failed to render search results", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(fragment))
}
