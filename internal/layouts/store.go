// Package layouts persists named window arrangements and applies them to the
// active Hyprland session.
package layouts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hyprpal/autolayout/internal/config"
	"github.com/hyprpal/autolayout/internal/layout"
)

// ErrLayoutNotFound is returned when no layout has the requested name.
var ErrLayoutNotFound = errors.New("layout not found")

// Layout is a named arrangement of clients.
type Layout struct {
	Name       string      `yaml:"name" json:"name"`
	Placements []Placement `yaml:"placements" json:"placements"`
}

// Placement moves matching clients into position. Workspace 0 means the
// session workspace and an empty Monitor means the monitor showing the target
// workspace.
type Placement struct {
	Match      config.MatcherConfig `yaml:"match" json:"match"`
	Workspace  int                  `yaml:"workspace,omitempty" json:"workspace,omitempty"`
	Monitor    string               `yaml:"monitor,omitempty" json:"monitor,omitempty"`
	Floating   bool                 `yaml:"floating,omitempty" json:"floating,omitempty"`
	Rect       *layout.PercentRect  `yaml:"rect,omitempty" json:"rect,omitempty"`
	Fullscreen bool                 `yaml:"fullscreen,omitempty" json:"fullscreen,omitempty"`
	// Limit caps how many clients the placement claims; 0 means all.
	Limit int `yaml:"limit,omitempty" json:"limit,omitempty"`
}

type document struct {
	Profiles config.MatcherProfiles `yaml:"profiles,omitempty"`
	Layouts  []Layout               `yaml:"layouts"`
}

// Store keeps named layouts backed by a YAML file.
type Store struct {
	mu       sync.RWMutex
	path     string
	layouts  []Layout
	profiles config.MatcherProfiles
	shared   config.MatcherProfiles
}

// Open loads the store at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Reload rereads the backing file. On error the previous contents are kept.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.mu.Lock()
		s.layouts = nil
		s.profiles = nil
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read layouts: %w", err)
	}
	doc, err := parse(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.layouts = doc.Layouts
	s.profiles = doc.Profiles
	s.mu.Unlock()
	return nil
}

func parse(data []byte) (document, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("decode layouts: %w", err)
	}
	seen := map[string]struct{}{}
	for i, l := range doc.Layouts {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			return document{}, fmt.Errorf("layouts[%d]: name cannot be empty", i)
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return document{}, fmt.Errorf("layouts[%d]: duplicate layout %q", i, name)
		}
		seen[key] = struct{}{}
		doc.Layouts[i].Name = name
		for j, p := range l.Placements {
			if err := p.Match.Validate(); err != nil {
				return document{}, fmt.Errorf("layouts[%d].placements[%d].match: %w", i, j, err)
			}
			if p.Limit < 0 {
				return document{}, fmt.Errorf("layouts[%d].placements[%d].limit: cannot be negative", i, j)
			}
		}
	}
	return doc, nil
}

// SetSharedProfiles makes the matcher profiles from the main configuration
// available to placements. Profiles in the layouts file take precedence.
func (s *Store) SetSharedProfiles(p config.MatcherProfiles) {
	s.mu.Lock()
	s.shared = p
	s.mu.Unlock()
}

func (s *Store) profile(name string) (config.MatcherConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[name]; ok {
		return p, true
	}
	p, ok := s.shared[name]
	return p, ok
}

// Names returns the layout names in file order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.layouts))
	for _, l := range s.layouts {
		names = append(names, l.Name)
	}
	return names
}

// Get returns the layout named name, compared case-insensitively.
func (s *Store) Get(name string) (Layout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.layouts {
		if strings.EqualFold(l.Name, strings.TrimSpace(name)) {
			return l, nil
		}
	}
	return Layout{}, fmt.Errorf("%w: %q", ErrLayoutNotFound, name)
}

// Put adds l or replaces the layout with the same name and writes the file.
func (s *Store) Put(l Layout) error {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return fmt.Errorf("layout name cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]Layout, 0, len(s.layouts)+1)
	replaced := false
	for _, existing := range s.layouts {
		if strings.EqualFold(existing.Name, l.Name) {
			next = append(next, l)
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	if !replaced {
		next = append(next, l)
	}
	if err := s.writeLocked(document{Profiles: s.profiles, Layouts: next}); err != nil {
		return err
	}
	s.layouts = next
	return nil
}

// writeLocked replaces the backing file atomically.
func (s *Store) writeLocked(doc document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode layouts: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create layouts dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".layouts-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp layouts: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write layouts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write layouts: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace layouts: %w", err)
	}
	return nil
}
