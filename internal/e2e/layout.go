package e2e

import (
	"errors"
	"fmt"
)

// Box is an element's bounding rectangle in CSS pixels, relative to the
// viewport.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b Box) Right() float64  { return b.X + b.Width }
func (b Box) Bottom() float64 { return b.Y + b.Height }

// Editor layout bounds.
const (
	minMainSidebarRatio = 1.5
	maxMainSidebarRatio = 3.0
	minSidebarWidth     = 300
	maxSidebarWidth     = 350
	layoutSlack         = 50
	stickyTopLimit      = -100
	stickyTopMax        = 100
	mobileWidthShare    = 0.8
)

// CheckDesktopLayout verifies the editor's side-by-side layout: main column
// left of the sidebar, roughly twice as wide, sidebar near 320px.
func CheckDesktopLayout(main, sidebar Box) error {
	var errs []error
	if main.X >= sidebar.X {
		errs = append(errs, fmt.Errorf("main x %.0f is not left of sidebar x %.0f", main.X, sidebar.X))
	}
	if sidebar.Width <= 0 {
		errs = append(errs, errors.New("sidebar has no width"))
	} else if r := main.Width / sidebar.Width; r <= minMainSidebarRatio || r >= maxMainSidebarRatio {
		errs = append(errs, fmt.Errorf("main/sidebar width ratio %.2f outside (%.1f, %.1f)", r, minMainSidebarRatio, maxMainSidebarRatio))
	}
	if sidebar.Width <= minSidebarWidth || sidebar.Width >= maxSidebarWidth {
		errs = append(errs, fmt.Errorf("sidebar width %.0f outside (%d, %d)", sidebar.Width, minSidebarWidth, maxSidebarWidth))
	}
	return errors.Join(errs...)
}

// CheckStickySidebar compares the sidebar before and after scrolling down:
// it must move up but stay on screen.
func CheckStickySidebar(before, after Box) error {
	var errs []error
	if after.Y >= before.Y {
		errs = append(errs, fmt.Errorf("sidebar y %.0f did not move up from %.0f", after.Y, before.Y))
	}
	if after.Y <= stickyTopLimit {
		errs = append(errs, fmt.Errorf("sidebar scrolled off screen (y %.0f)", after.Y))
	}
	return errors.Join(errs...)
}

// CheckMobileLayout verifies the stacked layout on a narrow viewport.
func CheckMobileLayout(main, sidebar Box, viewportWidth float64) error {
	var errs []error
	if sidebar.Y <= main.Bottom()-layoutSlack {
		errs = append(errs, fmt.Errorf("sidebar y %.0f is not below main (bottom %.0f)", sidebar.Y, main.Bottom()))
	}
	minWidth := viewportWidth * mobileWidthShare
	if main.Width <= minWidth {
		errs = append(errs, fmt.Errorf("main width %.0f not above %.0f", main.Width, minWidth))
	}
	if sidebar.Width <= minWidth {
		errs = append(errs, fmt.Errorf("sidebar width %.0f not above %.0f", sidebar.Width, minWidth))
	}
	return errors.Join(errs...)
}

// CheckLongContentLayout verifies the sidebar stays right of the main
// column and pinned near the top while a long post is open.
func CheckLongContentLayout(main, sidebar Box) error {
	var errs []error
	if sidebar.X <= main.Right()-layoutSlack {
		errs = append(errs, fmt.Errorf("sidebar x %.0f overlaps main (right %.0f)", sidebar.X, main.Right()))
	}
	if sidebar.Y >= stickyTopMax {
		errs = append(errs, fmt.Errorf("sidebar y %.0f not pinned near the top", sidebar.Y))
	}
	return errors.Join(errs...)
}

// transparent is the computed background of an element with none set.
const transparent = "rgba(0, 0, 0, 0)"
