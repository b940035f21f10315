// Package screen classifies the attached display topology into coarse screen
// contexts.
package screen

import (
	"fmt"
	"strings"
)

// Context is the coarse classification of the attached displays.
type Context int

const (
	// LaptopOnly means the built-in panel is the only (or the active) display.
	LaptopOnly Context = iota
	// SingleExternal means work happens on one external display.
	SingleExternal
	// MultiExternal means two or more external displays are in use.
	MultiExternal
)

// All lists every context in declaration order.
var All = []Context{LaptopOnly, SingleExternal, MultiExternal}

// String returns the canonical enum name.
func (c Context) String() string {
	switch c {
	case LaptopOnly:
		return "LAPTOP_ONLY"
	case SingleExternal:
		return "SINGLE_EXTERNAL"
	case MultiExternal:
		return "MULTI_EXTERNAL"
	default:
		return fmt.Sprintf("Context(%d)", int(c))
	}
}

// DisplayName returns the label used in notifications.
func (c Context) DisplayName() string {
	switch c {
	case LaptopOnly:
		return "Laptop only"
	case SingleExternal:
		return "Single external display"
	case MultiExternal:
		return "Multiple external displays"
	default:
		return c.String()
	}
}

// Slug returns the short lowercase form used in action arguments.
func (c Context) Slug() string {
	switch c {
	case LaptopOnly:
		return "laptop"
	case SingleExternal:
		return "single"
	case MultiExternal:
		return "multi"
	default:
		return strings.ToLower(c.String())
	}
}

// ParseContext accepts enum names and slugs, case-insensitively.
func ParseContext(s string) (Context, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, c := range All {
		if v == strings.ToLower(c.String()) || v == c.Slug() {
			return c, nil
		}
	}
	return LaptopOnly, fmt.Errorf("unknown screen context %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Context) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Context) UnmarshalText(text []byte) error {
	parsed, err := ParseContext(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
