package screen

import (
	"strings"

	"github.com/hyprpal/autolayout/internal/layout"
)

// Display is an immutable snapshot of one attached display.
type Display struct {
	ID     string      `json:"id"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Bounds layout.Rect `json:"bounds"`
}

// Topology is the set of displays plus the centre of the active window, if any.
type Topology struct {
	Displays     []Display     `json:"displays"`
	ActiveCenter *layout.Point `json:"activeCenter,omitempty"`
}

// Panels up to this mode are treated as built-in when no keyword matches.
const (
	maxLaptopWidth  = 2048
	maxLaptopHeight = 1536
)

var laptopKeywords = []string{"built-in", "internal", "retina", "color lcd"}

// IsLaptopLike reports whether d looks like a built-in panel. A keyword match
// on the identifier wins over the resolution rule.
func IsLaptopLike(d Display) bool {
	id := strings.ToLower(d.ID)
	for _, kw := range laptopKeywords {
		if strings.Contains(id, kw) {
			return true
		}
	}
	return d.Width <= maxLaptopWidth && d.Height <= maxLaptopHeight
}

// Classify maps a topology onto a screen context. It is total and does not
// depend on display order.
func Classify(t Topology) Context {
	if len(t.Displays) == 0 {
		return LaptopOnly
	}
	var laptops, externals int
	for _, d := range t.Displays {
		if IsLaptopLike(d) {
			laptops++
		} else {
			externals++
		}
	}
	if len(t.Displays) == 1 {
		if laptops == 1 {
			return LaptopOnly
		}
		return SingleExternal
	}
	if laptops > 0 && externals > 0 {
		if d, ok := t.activeDisplay(); ok && IsLaptopLike(d) {
			return LaptopOnly
		}
		if externals >= 2 {
			return MultiExternal
		}
		return SingleExternal
	}
	return MultiExternal
}

// activeDisplay returns the display containing the active window centre.
func (t Topology) activeDisplay() (Display, bool) {
	if t.ActiveCenter == nil {
		return Display{}, false
	}
	for _, d := range t.Displays {
		if d.Bounds.Contains(*t.ActiveCenter) {
			return d, true
		}
	}
	return Display{}, false
}
