package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"

	"github.com/hungpv1995/blog-frontkit/internal/theme"
	"go.uber.org/zap"
)

// ProxyHandler forwards everything to the blog server and runs the theme
// controller over the HTML pages that come back.
type ProxyHandler struct {
	proxy      *httputil.ReverseProxy
	controller *theme.Controller
	preference func(*http.Request) theme.Preference
	search     *SearchHandler
	log        *zap.SugaredLogger
}

type pageURLKey struct{}

// NewProxyHandler returns the theming reverse proxy. search fills the modal
// when a page is requested with the search open; it may be nil.
func NewProxyHandler(upstream *url.URL, controller *theme.Controller, preference func(*http.Request) theme.Preference, search *SearchHandler, log *zap.SugaredLogger) *ProxyHandler {
	h := &ProxyHandler{
		controller: controller,
		preference: preference,
		search:     search,
		log:        log,
	}

	rp := httputil.NewSingleHostReverseProxy(upstream)
	direct := rp.Director
	rp.Director = func(req *http.Request) {
		host := req.Host
		direct(req)
		theme.StripPageParams(req.URL)
		req.Header.Set("X-Forwarded-Host", host)
		// pages are rewritten, so they must arrive uncompressed
		req.Header.Del("Accept-Encoding")
	}
	rp.ModifyResponse = h.enhance
	rp.ErrorHandler = h.upstreamError
	h.proxy = rp
	return h
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	page := *r.URL
	h.proxy.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), pageURLKey{}, &page)))
}

// pageURL is the URL the visitor asked for, widget parameters included.
func pageURL(r *http.Request) *url.URL {
	if u, ok := r.Context().Value(pageURLKey{}).(*url.URL); ok {
		return u
	}
	return r.URL
}

func (h *ProxyHandler) enhance(resp *http.Response) error {
	resp.Header.Set("Accept-CH", theme.SystemHint)

	if resp.StatusCode != http.StatusOK || !isHTML(resp.Header.Get("Content-Type")) {
		return nil
	}
	if enc := resp.Header.Get("Content-Encoding"); enc != "" && enc != "identity" {
		h.log.Debugw("skipping encoded page", "path", resp.Request.URL.Path, "encoding", enc)
		return nil
	}

	doc, err := theme.ParseDocument(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("enhance %s: %w", resp.Request.URL.Path, err)
	}

	st := h.controller.PageState(h.preference(resp.Request), pageURL(resp.Request))
	if st.SearchOpen && h.search != nil {
		st.Search = h.search.View(resp.Request.Context(), st.SearchQuery)
	}
	rep := h.controller.Init(doc, st)

	PagesEnhanced.Inc()
	for _, name := range rep.Skipped {
		WidgetsSkipped.WithLabelValues(name).Inc()
	}

	body, err := doc.Bytes()
	if err != nil {
		return fmt.Errorf("enhance %s: %w", resp.Request.URL.Path, err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	resp.Header.Del("ETag")
	resp.Header.Add("Vary", "Cookie")
	resp.Header.Add("Vary", theme.SystemHint)
	return nil
}

func (h *ProxyHandler) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	UpstreamErrors.Inc()
	h.log.Errorw("upstream request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	http.Error(w, "Bad gateway", http.StatusBadGateway)
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "text/html"
}
