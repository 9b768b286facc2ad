package theme

import "time"

const (
	BackToTopOffset = 300
	NavbarOffset    = 100

	CopyLabel        = "Copy"
	CopiedLabel      = "Copied!"
	CopyResetTimeout = 2 * time.Second
)

// MenuState is the mobile menu's open/closed toggle.
type MenuState struct {
	Open bool
}

// ClickButton toggles the menu.
func (m *MenuState) ClickButton() { m.Open = !m.Open }

// ClickOutside closes the menu when the click hit neither the button nor
// the menu.
func (m *MenuState) ClickOutside() { m.Open = false }

// KeyDown closes an open menu on Escape.
func (m *MenuState) KeyDown(key string) {
	if key == "Escape" {
		m.Open = false
	}
}

// Icon returns the SVG path for the button in the current state.
func (m MenuState) Icon() string {
	if m.Open {
		return closeIconPath
	}
	return menuIconPath
}

const (
	menuIconPath  = `<path stroke-linecap="round" stroke-linejoin="round" stroke-width="2" d="M4 6h16M4 12h16M4 18h16"></path>`
	closeIconPath = `<path stroke-linecap="round" stroke-linejoin="round" stroke-width="2" d="M6 18L18 6M6 6l12 12"></path>`
)

// ScrollState derives the scroll-dependent classes from the vertical offset.
// Pages are rendered at offset zero; the page script applies the same
// thresholds while the reader scrolls.
type ScrollState struct {
	Y int
}

func (s ScrollState) BackToTopVisible() bool { return s.Y > BackToTopOffset }

func (s ScrollState) NavbarScrolled() bool { return s.Y > NavbarOffset }

// BackToTopClasses returns the classes to add and to remove.
func (s ScrollState) BackToTopClasses() (add, remove []string) {
	visible := []string{"opacity-100", "visible"}
	hidden := []string{"opacity-0", "invisible"}
	if s.BackToTopVisible() {
		return visible, hidden
	}
	return hidden, visible
}

// Lightbox is the full-size image overlay.
type Lightbox struct {
	Open bool
	Src  string
	Alt  string
}

func (l *Lightbox) Show(src, alt string) {
	l.Open, l.Src, l.Alt = true, src, alt
}

func (l *Lightbox) Close() {
	*l = Lightbox{}
}

func (l *Lightbox) KeyDown(key string) {
	if key == "Escape" {
		l.Close()
	}
}
