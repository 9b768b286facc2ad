package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the proxy's own endpoints in front of the catch-all
// reverse proxy.
func NewRouter(proxy *ProxyHandler, themes *ThemeHandler, search *SearchHandler, secureCookies bool) *mux.Router {
	r := mux.NewRouter()
	r.Use(ClientID(secureCookies))

	r.HandleFunc("/_health", Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/_theme/toggle", themes.Toggle).Methods("POST")
	r.HandleFunc("/_theme/reset", themes.Reset).Methods("POST")
	r.HandleFunc("/_theme/theme.js", themes.Script).Methods("GET")
	r.HandleFunc("/_theme", themes.Current).Methods("GET")
	r.Handle("/_search", search).Methods("GET")
	r.PathPrefix("/").Handler(proxy)
	return r
}

// Health handles GET /_health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
