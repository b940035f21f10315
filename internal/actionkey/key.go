// Package actionkey encodes and decodes the string keys stored in
// configuration that address either a raw action or a named layout.
package actionkey

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tags the variant held by a Key.
type Kind int

const (
	// Empty means do nothing.
	Empty Kind = iota
	// RawAction addresses an action registry entry by id.
	RawAction
	// NamedLayout addresses a saved layout by name.
	NamedLayout
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case RawAction:
		return "action"
	case NamedLayout:
		return "namedLayout"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

const (
	// NamedLayoutPrefix marks a named layout reference.
	NamedLayoutPrefix = "namedLayout:"
	// legacyPrefix is accepted by Decode only.
	legacyPrefix = "name:"
)

// ErrInvalidKey is returned when a prefixed key carries no name.
var ErrInvalidKey = errors.New("invalid action key")

// Key is a decoded action key.
type Key struct {
	Kind  Kind
	Value string
}

// None is the empty key.
var None = Key{}

// Action returns a raw action key.
func Action(id string) Key {
	if id == "" {
		return None
	}
	return Key{Kind: RawAction, Value: id}
}

// Layout returns a named layout key.
func Layout(name string) Key {
	if name == "" {
		return None
	}
	return Key{Kind: NamedLayout, Value: name}
}

// IsEmpty reports whether the key does nothing.
func (k Key) IsEmpty() bool {
	return k.Kind == Empty
}

// Encode returns the canonical string form.
func (k Key) Encode() string {
	switch k.Kind {
	case RawAction:
		return k.Value
	case NamedLayout:
		return NamedLayoutPrefix + k.Value
	default:
		return ""
	}
}

func (k Key) String() string {
	return k.Encode()
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.Encode()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	decoded, err := Decode(string(text))
	if err != nil {
		return err
	}
	*k = decoded
	return nil
}

// Decode parses s. Blank input yields the empty key; the legacy "name:"
// prefix is read as a named layout. A prefix with nothing after it returns
// ErrInvalidKey.
func Decode(s string) (Key, error) {
	if strings.TrimSpace(s) == "" {
		return None, nil
	}
	if name, ok := stripPrefix(s); ok {
		if name == "" {
			return None, fmt.Errorf("%w: %q", ErrInvalidKey, s)
		}
		return Key{Kind: NamedLayout, Value: name}, nil
	}
	return Key{Kind: RawAction, Value: s}, nil
}

// MustDecode decodes s, treating invalid keys as empty.
func MustDecode(s string) Key {
	k, err := Decode(s)
	if err != nil {
		return None
	}
	return k
}

// IsLegacy reports whether s uses the legacy "name:" prefix.
func IsLegacy(s string) bool {
	return strings.HasPrefix(s, legacyPrefix)
}

// HasPrefix reports whether s carries either named layout prefix.
func HasPrefix(s string) bool {
	_, ok := stripPrefix(s)
	return ok
}

// StripPrefix removes either prefix and trims the remainder. Unprefixed input
// is returned trimmed.
func StripPrefix(s string) string {
	if name, ok := stripPrefix(s); ok {
		return name
	}
	return strings.TrimSpace(s)
}

func stripPrefix(s string) (string, bool) {
	switch {
	case strings.HasPrefix(s, NamedLayoutPrefix):
		return strings.TrimSpace(strings.TrimPrefix(s, NamedLayoutPrefix)), true
	case strings.HasPrefix(s, legacyPrefix):
		return strings.TrimSpace(strings.TrimPrefix(s, legacyPrefix)), true
	}
	return "", false
}
