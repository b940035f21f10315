package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/hyprpal/autolayout/internal/actionkey"
	"github.com/hyprpal/autolayout/internal/screen"
)

// LintError describes a configuration problem at a path.
type LintError struct {
	Path    string
	Message string
}

func (e LintError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

var mappingFields = map[screen.Context]string{
	screen.LaptopOnly:     "laptopActionId",
	screen.SingleExternal: "singleExternalActionId",
	screen.MultiExternal:  "multiExternalActionId",
}

// Lint returns the problems that make the configuration unusable.
func (c *Config) Lint() []LintError {
	var errs []LintError
	if c.NotificationTimeoutMs < 0 {
		errs = append(errs, LintError{Path: "notificationTimeoutMs", Message: "cannot be negative"})
	}
	switch c.Dispatch {
	case "", "socket", "hyprctl":
	default:
		errs = append(errs, LintError{Path: "dispatch", Message: fmt.Sprintf("unknown strategy %q (want socket or hyprctl)", c.Dispatch)})
	}
	for name, profile := range c.Profiles {
		path := fmt.Sprintf("profiles.%s", name)
		if profile.Profile != "" {
			errs = append(errs, LintError{Path: path, Message: "profiles cannot reference other profiles"})
			continue
		}
		if err := profile.Validate(); err != nil {
			errs = append(errs, LintError{Path: path, Message: err.Error()})
			continue
		}
		if profile.TitleRegex != "" {
			if _, err := regexp.Compile(profile.TitleRegex); err != nil {
				errs = append(errs, LintError{Path: path + ".titleRegex", Message: err.Error()})
			}
		}
	}
	ids := map[string]struct{}{}
	for i, action := range c.Actions {
		path := fmt.Sprintf("actions[%d]", i)
		if action.ID == "" {
			errs = append(errs, LintError{Path: path + ".id", Message: "cannot be empty"})
			continue
		}
		if actionkey.HasPrefix(action.ID) {
			errs = append(errs, LintError{Path: path + ".id", Message: fmt.Sprintf("%q collides with the named layout prefix", action.ID)})
		}
		if _, exists := ids[action.ID]; exists {
			errs = append(errs, LintError{Path: path + ".id", Message: fmt.Sprintf("duplicate action id %q", action.ID)})
		}
		ids[action.ID] = struct{}{}
		if len(action.Dispatch) == 0 {
			errs = append(errs, LintError{Path: path + ".dispatch", Message: "must list at least one command"})
		}
		for j, cmd := range action.Dispatch {
			if len(cmd) == 0 || cmd[0] == "" {
				errs = append(errs, LintError{Path: fmt.Sprintf("%s.dispatch[%d]", path, j), Message: "dispatcher name cannot be empty"})
			}
		}
	}
	return errs
}

// Warnings returns problems that are tolerated at runtime: out of range
// intervals are clamped, invalid keys act as "do nothing" and legacy keys
// still resolve.
func (c *Config) Warnings() []LintError {
	var warns []LintError
	if c.PollingSeconds != ClampPollingSeconds(c.PollingSeconds) {
		warns = append(warns, LintError{
			Path:    "pollingSeconds",
			Message: fmt.Sprintf("%d is outside [%d,%d]; using %d", c.PollingSeconds, MinPollingSeconds, MaxPollingSeconds, ClampPollingSeconds(c.PollingSeconds)),
		})
	}
	warns = append(warns, c.KeyWarnings()...)
	return warns
}

// KeyWarnings reports invalid and legacy action keys.
func (c *Config) KeyWarnings() []LintError {
	var warns []LintError
	for _, ctx := range screen.All {
		raw := c.ActionID(ctx)
		field := mappingFields[ctx]
		if _, err := actionkey.Decode(raw); err != nil {
			warns = append(warns, LintError{Path: field, Message: fmt.Sprintf("%v; treated as do nothing", err)})
			continue
		}
		if actionkey.IsLegacy(raw) {
			warns = append(warns, LintError{
				Path:    field,
				Message: fmt.Sprintf("legacy key %q; write %q instead", raw, actionkey.MustDecode(raw).Encode()),
			})
		}
	}
	return warns
}

// LintFile parses the file at path and returns every problem found. Decode
// failures are reported as a single lint error.
func LintFile(path string) (errs []LintError, warns []LintError, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return []LintError{{Message: err.Error()}}, nil, nil
	}
	return cfg.Lint(), cfg.Warnings(), nil
}
