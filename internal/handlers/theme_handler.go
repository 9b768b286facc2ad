package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hungpv1995/blog-frontkit/internal/theme"
	"go.uber.org/zap"
)

// one year, matching the default store TTL
const cookieMaxAge = 365 * 24 * 60 * 60

type ThemeHandler struct {
	store  theme.Store
	log    *zap.SugaredLogger
	secure bool
}

// NewThemeHandler returns the theme endpoints. store may be nil, in which
// case the cookie is the only record of the choice.
func NewThemeHandler(store theme.Store, log *zap.SugaredLogger, secure bool) *ThemeHandler {
	return &ThemeHandler{
		store:  store,
		log:    log,
		secure: secure,
	}
}

type themeResponse struct {
	Theme      theme.Mode `json:"theme"`
	Explicit   bool       `json:"explicit"`
	SystemDark bool       `json:"system_dark"`
}

// Preference resolves the visitor's preference: the theme cookie first, then
// the server-side mirror, then the system hint.
func (h *ThemeHandler) Preference(r *http.Request) theme.Preference {
	p := theme.PreferenceFromRequest(r)
	if p.HasExplicit || h.store == nil {
		return p
	}

	id := ClientIDFrom(r.Context())
	if id == "" {
		return p
	}
	mode, ok, err := h.store.Load(r.Context(), id)
	if err != nil {
		h.log.Warnw("failed to load theme preference", "client_id", id, "error", err)
		return p
	}
	if ok {
		p.Explicit, p.HasExplicit = mode, true
	}
	return p
}

// Toggle handles POST /_theme/toggle
func (h *ThemeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	next := h.Preference(r).Toggled()

	http.SetCookie(w, &http.Cookie{
		Name:     theme.StorageKey,
		Value:    next.Explicit.String(),
		Path:     "/",
		MaxAge:   cookieMaxAge,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	if id := ClientIDFrom(r.Context()); h.store != nil && id != "" {
		if err := h.store.Save(r.Context(), id, next.Explicit); err != nil {
			h.log.Warnw("failed to save theme preference", "client_id", id, "error", err)
		}
	}
	ThemeToggles.WithLabelValues(next.Explicit.String()).Inc()

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, themeResponse{
			Theme:      next.Effective(),
			Explicit:   true,
			SystemDark: next.SystemDark,
		})
		return
	}
	http.Redirect(w, r, safeReturnTo(r.FormValue("return_to")), http.StatusSeeOther)
}

// Reset handles POST /_theme/reset. It drops the explicit choice so the
// system preference applies again.
func (h *ThemeHandler) Reset(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     theme.StorageKey,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	if id := ClientIDFrom(r.Context()); h.store != nil && id != "" {
		if err := h.store.Invalidate(r.Context(), id); err != nil {
			h.log.Warnw("failed to invalidate theme preference", "client_id", id, "error", err)
		}
	}
	ThemeResets.Inc()

	p := theme.PreferenceFromRequest(r)
	p.Explicit, p.HasExplicit = "", false
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, themeResponse{
			Theme:      p.Effective(),
			Explicit:   false,
			SystemDark: p.SystemDark,
		})
		return
	}
	http.Redirect(w, r, safeReturnTo(r.FormValue("return_to")), http.StatusSeeOther)
}

// Script handles GET /_theme/theme.js
func (h *ThemeHandler) Script(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(theme.Script())
}

// Current handles GET /_theme
func (h *ThemeHandler) Current(w http.ResponseWriter, r *http.Request) {
	p := h.Preference(r)
	writeJSON(w, http.StatusOK, themeResponse{
		Theme:      p.Effective(),
		Explicit:   p.HasExplicit,
		SystemDark: p.SystemDark,
	})
}

// safeReturnTo only allows local paths so the toggle cannot be used as an
// open redirect.
func safeReturnTo(s string) string {
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/\\") {
		return "/"
	}
	return s
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
