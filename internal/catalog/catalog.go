// Package catalog lists selectable choices and resolves action keys against
// the action registry and the named layout store.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hyprpal/autolayout/internal/actionkey"
)

// RestoreDefaultID is the id of the built-in restore action.
const RestoreDefaultID = "RestoreDefaultLayout"

const (
	doNothingLabel    = "<Do nothing>"
	restoreDefaultAlt = "Restore Default Layout"
)

// ErrUnresolvedActionKey is returned when neither a layout nor an action
// matches a key.
var ErrUnresolvedActionKey = errors.New("unresolved action key")

// ActionRef identifies a registered action.
type ActionRef struct {
	ID    string
	Label string
}

// ActionRegistry looks up actions by id.
type ActionRegistry interface {
	Lookup(id string) (ActionRef, bool)
}

// LayoutStore lists the saved layout names.
type LayoutStore interface {
	Names() []string
}

// Choice is one selectable entry.
type Choice struct {
	Key   actionkey.Key `json:"key"`
	Label string        `json:"label"`
}

// Reference is a resolved, executable key.
type Reference struct {
	Kind actionkey.Kind `json:"-"`
	// Name is the canonical layout name or the action id.
	Name  string `json:"name"`
	Label string `json:"label"`
	// Key is the canonical key the reference was resolved as.
	Key actionkey.Key `json:"key"`
}

// Catalog resolves keys using its collaborators.
type Catalog struct {
	actions ActionRegistry
	layouts LayoutStore
}

// New returns a catalog over the given registry and store.
func New(actions ActionRegistry, layouts LayoutStore) *Catalog {
	return &Catalog{actions: actions, layouts: layouts}
}

// DiscoverChoices returns the ordered choices: the empty choice, the
// restore-default action when registered, then named layouts sorted
// case-insensitively.
func (c *Catalog) DiscoverChoices() []Choice {
	choices := []Choice{{Key: actionkey.None, Label: doNothingLabel}}
	seen := map[string]bool{"": true}
	add := func(ch Choice) {
		enc := ch.Key.Encode()
		if seen[enc] {
			return
		}
		seen[enc] = true
		choices = append(choices, ch)
	}

	if ref, ok := c.actions.Lookup(RestoreDefaultID); ok {
		label := strings.TrimSpace(ref.Label)
		if label == "" {
			label = restoreDefaultAlt
		}
		add(Choice{Key: actionkey.Action(RestoreDefaultID), Label: label})
	}

	for _, name := range c.sortedNames() {
		add(Choice{Key: actionkey.Layout(name), Label: name})
	}
	return choices
}

func (c *Catalog) sortedNames() []string {
	var names []string
	for _, name := range c.layouts.Names() {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names
}

// Resolve turns a key into a reference. Unprefixed keys are matched against
// layout names before the action registry so keys saved before the
// namedLayout: prefix existed keep pointing at their layout.
func (c *Catalog) Resolve(key actionkey.Key) (Reference, error) {
	switch key.Kind {
	case actionkey.RawAction:
		if name, ok := c.matchLayout(key.Value); ok {
			return layoutRef(name), nil
		}
		if ref, ok := c.actions.Lookup(key.Value); ok {
			label := strings.TrimSpace(ref.Label)
			if label == "" {
				label = ref.ID
			}
			return Reference{Kind: actionkey.RawAction, Name: ref.ID, Label: label, Key: actionkey.Action(ref.ID)}, nil
		}
	case actionkey.NamedLayout:
		if name, ok := c.matchLayout(key.Value); ok {
			return layoutRef(name), nil
		}
	}
	return Reference{}, fmt.Errorf("%w: %q", ErrUnresolvedActionKey, key.Encode())
}

// ResolveString decodes raw and resolves it. Invalid keys resolve like the
// empty key.
func (c *Catalog) ResolveString(raw string) (Reference, error) {
	return c.Resolve(actionkey.MustDecode(raw))
}

func layoutRef(name string) Reference {
	return Reference{Kind: actionkey.NamedLayout, Name: name, Label: name, Key: actionkey.Layout(name)}
}

// ResolveNamedLayoutName strips either prefix and returns the stored layout
// name matching case-insensitively.
func (c *Catalog) ResolveNamedLayoutName(raw string) (string, bool) {
	return c.matchLayout(actionkey.StripPrefix(raw))
}

func (c *Catalog) matchLayout(requested string) (string, bool) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return "", false
	}
	for _, name := range c.layouts.Names() {
		if strings.EqualFold(name, requested) {
			return name, true
		}
	}
	return "", false
}
