package layouts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyprpal/autolayout/internal/config"
	"github.com/hyprpal/autolayout/internal/layout"
)

const sampleLayouts = `
profiles:
  term:
    anyClass: [kitty, foot]
layouts:
  - name: Focus
    placements:
      - match: {class: firefox}
        workspace: 1
      - match: {profile: term}
        floating: true
        rect: {x: 60, y: 10, width: 40, height: 80}
        limit: 1
  - name: review
    placements:
      - match: {titleRegex: "Pull Request"}
        fullscreen: true
`

func writeLayouts(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layouts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestOpenParsesLayouts(t *testing.T) {
	store, err := Open(writeLayouts(t, sampleLayouts))
	require.NoError(t, err)
	assert.Equal(t, []string{"Focus", "review"}, store.Names())

	l, err := store.Get("FOCUS")
	require.NoError(t, err)
	require.Len(t, l.Placements, 2)
	assert.Equal(t, &layout.PercentRect{X: 60, Y: 10, Width: 40, Height: 80}, l.Placements[1].Rect)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrLayoutNotFound)
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, store.Names())
}

func TestOpenRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"duplicate":  "layouts:\n  - name: A\n  - name: a\n",
		"empty name": "layouts:\n  - name: \" \"\n",
		"no match":   "layouts:\n  - name: A\n    placements:\n      - workspace: 2\n",
	}
	for name, body := range cases {
		_, err := Open(writeLayouts(t, body))
		assert.Error(t, err, name)
	}
}

func TestReloadKeepsPreviousOnError(t *testing.T) {
	path := writeLayouts(t, sampleLayouts)
	store, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("layouts: [broken"), 0o600))
	assert.Error(t, store.Reload())
	assert.Equal(t, []string{"Focus", "review"}, store.Names())
}

func TestPutReplacesAndPersists(t *testing.T) {
	path := writeLayouts(t, sampleLayouts)
	store, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, store.Put(Layout{Name: "Review", Placements: []Placement{{Match: config.MatcherConfig{Class: "code"}}}}))
	require.NoError(t, store.Put(Layout{Name: "Docked"}))
	assert.Equal(t, []string{"Focus", "Review", "Docked"}, store.Names())

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, store.Names(), reopened.Names())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "term:"), "profiles must survive a rewrite")
}

func TestSharedProfiles(t *testing.T) {
	store, err := Open(writeLayouts(t, "layouts:\n  - name: A\n    placements:\n      - match: {profile: chat}\n"))
	require.NoError(t, err)
	_, err = store.matcher(config.MatcherConfig{Profile: "chat"})
	assert.Error(t, err)

	store.SetSharedProfiles(config.MatcherProfiles{"chat": {Class: "Slack"}})
	match, err := store.matcher(config.MatcherConfig{Profile: "chat"})
	require.NoError(t, err)
	assert.NotNil(t, match)
}
