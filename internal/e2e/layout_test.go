package e2e

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckDesktopLayout(t *testing.T) {
	tests := []struct {
		name    string
		main    Box
		sidebar Box
		ok      bool
	}{
		{"two to one", Box{X: 20, Width: 640}, Box{X: 680, Width: 320}, true},
		{"sidebar first", Box{X: 400, Width: 640}, Box{X: 20, Width: 320}, false},
		{"too wide main", Box{X: 20, Width: 1000}, Box{X: 1040, Width: 320}, false},
		{"narrow sidebar", Box{X: 20, Width: 560}, Box{X: 600, Width: 280}, false},
		{"no sidebar width", Box{X: 20, Width: 560}, Box{X: 600}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckDesktopLayout(tc.main, tc.sidebar)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCheckStickySidebar(t *testing.T) {
	assert.NoError(t, CheckStickySidebar(Box{Y: 120}, Box{Y: 16}))
	assert.Error(t, CheckStickySidebar(Box{Y: 120}, Box{Y: 120}))
	assert.Error(t, CheckStickySidebar(Box{Y: 120}, Box{Y: -880}))
}

func TestCheckMobileLayout(t *testing.T) {
	main := Box{X: 8, Y: 100, Width: 359, Height: 900}
	assert.NoError(t, CheckMobileLayout(main, Box{X: 8, Y: 1010, Width: 359}, 375))
	assert.NoError(t, CheckMobileLayout(main, Box{X: 8, Y: 980, Width: 359}, 375), "small overlap allowed")
	assert.Error(t, CheckMobileLayout(main, Box{X: 8, Y: 500, Width: 359}, 375))
	assert.Error(t, CheckMobileLayout(main, Box{X: 8, Y: 1010, Width: 200}, 375))
}

func TestCheckLongContentLayout(t *testing.T) {
	main := Box{X: 20, Y: -2000, Width: 640, Height: 12000}
	assert.NoError(t, CheckLongContentLayout(main, Box{X: 680, Y: 16, Width: 320}))
	assert.Error(t, CheckLongContentLayout(main, Box{X: 300, Y: 16, Width: 320}))
	assert.Error(t, CheckLongContentLayout(main, Box{X: 680, Y: 400, Width: 320}))
}

func TestBox(t *testing.T) {
	b := Box{X: 10, Y: 20, Width: 30, Height: 40}
	assert.Equal(t, 40.0, b.Right())
	assert.Equal(t, 60.0, b.Bottom())
}
