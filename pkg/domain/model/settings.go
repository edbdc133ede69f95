package model

import (
	"slices"
	"strings"
)

// Settings is the per-installation configuration read from the settings
// repository. Rules map a selector list ("pull_request, issues.opened") to
// the rule reference to execute.
type Settings struct {
	Rules   map[string]string            `json:"rules,omitempty" toml:"rules,omitempty" yaml:"rules,omitempty" firestore:"rules,omitempty"`
	Repos   map[string]map[string]string `json:"repos,omitempty" toml:"repos,omitempty" yaml:"repos,omitempty" firestore:"repos,omitempty"`
	Options SettingsOptions              `json:"settings" toml:"settings" yaml:"settings" firestore:"options"`
}

// SettingsOptions holds installation-wide switches
type SettingsOptions struct {
	IgnoredRepos []string `json:"ignored_repos,omitempty" toml:"ignored_repos,omitempty" yaml:"ignored_repos,omitempty" firestore:"ignored_repos,omitempty"`
	EnvVars      []string `json:"env_vars,omitempty" toml:"env_vars,omitempty" yaml:"env_vars,omitempty" firestore:"env_vars,omitempty"`
	Modules      []string `json:"modules,omitempty" toml:"modules,omitempty" yaml:"modules,omitempty" firestore:"modules,omitempty"`
}

// IsIgnored reports whether repo (full name) is excluded from rule runs
func (s *Settings) IsIgnored(repo string) bool {
	return slices.Contains(s.Options.IgnoredRepos, repo)
}

// RuleMatch is one rule selected for an event
type RuleMatch struct {
	Selector string // the matching selector key as written in settings
	Rule     string
}

// MatchRules returns the org-wide rules followed by the repository rules
// whose selectors match the event. Results are sorted by selector within
// each group so that runs are created in a stable order.
func (s *Settings) MatchRules(event *GenericEvent) []RuleMatch {
	var matches []RuleMatch
	matches = append(matches, matchRuleSet(s.Rules, event)...)
	if event.Repository != "" {
		matches = append(matches, matchRuleSet(s.Repos[event.Repository], event)...)
	}
	return matches
}

func matchRuleSet(rules map[string]string, event *GenericEvent) []RuleMatch {
	keys := make([]string, 0, len(rules))
	for key := range rules {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var matches []RuleMatch
	for _, key := range keys {
		if selectorMatches(key, event) {
			matches = append(matches, RuleMatch{Selector: key, Rule: rules[key]})
		}
	}
	return matches
}

func selectorMatches(key string, event *GenericEvent) bool {
	if event.Name == "" {
		return false
	}
	for _, sel := range strings.Split(key, ",") {
		sel = strings.TrimSpace(sel)
		if sel == event.Name || (event.Action != "" && sel == event.Selector()) {
			return true
		}
	}
	return false
}
