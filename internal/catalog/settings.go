package catalog

import (
	"strings"

	"github.com/hyprpal/autolayout/internal/actionkey"
)

// Option is a selectable entry as presented by `alctl choices`. Value is the
// string that would be stored in configuration.
type Option struct {
	Value     string `json:"value"`
	Label     string `json:"label"`
	Available bool   `json:"available"`
}

// Options returns the discovered choices followed by an unavailable entry for
// each configured key that no choice can represent.
func (c *Catalog) Options(configured ...string) []Option {
	choices := c.DiscoverChoices()
	options := make([]Option, 0, len(choices)+len(configured))
	present := make(map[string]bool, len(choices))
	for _, ch := range choices {
		value := ch.Key.Encode()
		options = append(options, Option{Value: value, Label: ch.Label, Available: true})
		present[value] = true
	}
	for _, raw := range configured {
		raw = strings.TrimSpace(raw)
		if raw == "" || present[raw] {
			continue
		}
		if Select(options, raw) != 0 {
			continue
		}
		options = append(options, Option{Value: raw, Label: raw + " (unavailable)"})
		present[raw] = true
	}
	return options
}

// Select returns the index of the option representing the stored key raw, or
// 0 (the empty choice) when none does.
func Select(options []Option, raw string) int {
	for _, key := range PreferredKeys(raw) {
		for i, opt := range options {
			if opt.Value == key {
				return i
			}
		}
	}
	return 0
}

// PreferredKeys lists the option values a stored key may be shown as, most
// specific first. Legacy keys map to their canonical form and bare name;
// unprefixed keys may also be a layout.
func PreferredKeys(raw string) []string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	keys := []string{value}
	switch {
	case actionkey.IsLegacy(value):
		if name := actionkey.StripPrefix(value); name != "" {
			keys = append(keys, actionkey.Layout(name).Encode(), name)
		}
	case !strings.HasPrefix(value, actionkey.NamedLayoutPrefix):
		keys = append(keys, actionkey.Layout(value).Encode())
	}
	return keys
}
