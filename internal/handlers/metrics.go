package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesEnhanced counts HTML pages the theme controller ran on.
	PagesEnhanced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontkit_pages_enhanced_total",
		Help: "Total number of proxied HTML pages enhanced by the theme controller",
	})

	// WidgetsSkipped counts widgets whose elements were missing from a page.
	WidgetsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontkit_widgets_skipped_total",
		Help: "Total number of widgets skipped because the page lacked their elements",
	}, []string{"widget"})

	// ThemeToggles counts toggle clicks by the mode switched to.
	ThemeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontkit_theme_toggles_total",
		Help: "Total number of theme toggles by resulting mode",
	}, []string{"mode"})

	// ThemeResets counts visitors going back to the system preference.
	ThemeResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontkit_theme_resets_total",
		Help: "Total number of theme resets to the system preference",
	})

	// SearchRequests counts search endpoint calls by resulting status.
	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontkit_search_requests_total",
		Help: "Total number of search requests by result status",
	}, []string{"status"})

	// UpstreamErrors counts failed proxy round trips.
	UpstreamErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontkit_upstream_errors_total",
		Help: "Total number of failed requests to the blog server",
	})
)
