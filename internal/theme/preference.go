package theme

import (
	"context"
	"net/http"
	"strings"
)

// Mode is the colour scheme applied to the page.
type Mode string

const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

// StorageKey is the client-side key (cookie name) the explicit choice is
// persisted under.
const StorageKey = "theme"

// SystemHint is the client hint carrying the OS colour scheme preference.
const SystemHint = "Sec-CH-Prefers-Color-Scheme"

func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Light:
		return Light, true
	case Dark:
		return Dark, true
	}
	return "", false
}

func (m Mode) Toggle() Mode {
	if m == Dark {
		return Light
	}
	return Dark
}

func (m Mode) String() string { return string(m) }

// Preference holds what is known about the visitor's colour scheme.
type Preference struct {
	Explicit    Mode
	HasExplicit bool
	SystemDark  bool
}

// Effective returns the explicit choice when there is one; the system
// preference only applies otherwise.
func (p Preference) Effective() Mode {
	if p.HasExplicit {
		return p.Explicit
	}
	if p.SystemDark {
		return Dark
	}
	return Light
}

// Toggled returns the preference after one click on the toggle: an explicit
// choice opposite to what is currently shown.
func (p Preference) Toggled() Preference {
	return Preference{
		Explicit:    p.Effective().Toggle(),
		HasExplicit: true,
		SystemDark:  p.SystemDark,
	}
}

// Store mirrors explicit choices server-side, keyed by client id.
type Store interface {
	Load(ctx context.Context, clientID string) (Mode, bool, error)
	Save(ctx context.Context, clientID string, mode Mode) error
	Invalidate(ctx context.Context, clientID string) error
}

// PreferenceFromRequest reads the explicit choice from the theme cookie and
// the system preference from the client hint.
func PreferenceFromRequest(r *http.Request) Preference {
	var p Preference
	if c, err := r.Cookie(StorageKey); err == nil {
		p.Explicit, p.HasExplicit = ParseMode(c.Value)
	}
	p.SystemDark = strings.EqualFold(strings.Trim(r.Header.Get(SystemHint), `" `), string(Dark))
	return p
}
