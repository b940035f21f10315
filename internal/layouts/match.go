package layouts

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyprpal/autolayout/internal/config"
	"github.com/hyprpal/autolayout/internal/state"
)

type clientMatcher func(c state.Client) bool

func (s *Store) matcher(cfg config.MatcherConfig) (clientMatcher, error) {
	if cfg.Profile != "" {
		profile, ok := s.profile(cfg.Profile)
		if !ok {
			return nil, fmt.Errorf("unknown match profile %q", cfg.Profile)
		}
		return matcherFromConfig(profile)
	}
	return matcherFromConfig(cfg)
}

func matcherFromConfig(cfg config.MatcherConfig) (clientMatcher, error) {
	if cfg.Class != "" {
		expected := strings.ToLower(cfg.Class)
		return func(c state.Client) bool { return strings.ToLower(c.Class) == expected }, nil
	}
	if len(cfg.AnyClass) > 0 {
		set := map[string]struct{}{}
		for _, item := range cfg.AnyClass {
			set[strings.ToLower(item)] = struct{}{}
		}
		return func(c state.Client) bool {
			_, ok := set[strings.ToLower(c.Class)]
			return ok
		}, nil
	}
	if cfg.TitleRegex != "" {
		re, err := regexp.Compile(cfg.TitleRegex)
		if err != nil {
			return nil, fmt.Errorf("compile match.titleRegex: %w", err)
		}
		return func(c state.Client) bool { return re.MatchString(c.Title) }, nil
	}
	return nil, fmt.Errorf("match requires class, anyClass, or titleRegex")
}
