// Package classify implements the path classifier (C2): matching a file
// path against sensitivity rules and exclusion globs, with the
// first-alias-wins-per-rule semantics §4.2 mandates.
package classify

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Rule is one glob/tag/weight tuple (§3 SensitivityRule).
type Rule struct {
	Pattern string
	Tag     string
	Weight  float64
}

// Classifier holds a compiled set of sensitivity rules and answers
// classify/is_excluded queries against them. It is immutable after
// construction: classification must be deterministic and path-only
// (§9 open question a).
type Classifier struct {
	rules []Rule
}

// New builds a Classifier from rules, in the order they should be
// evaluated (evaluation order does not affect the result set, only
// which alias of a given rule is considered "first", per rule).
func New(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the accumulated tag→weight mapping for path. For
// each rule, the rule's primary pattern is tried; if the pattern starts
// with "**/", the tail form (pattern with that prefix stripped) is also
// tried, but only the first alias that matches for a given rule
// contributes — distinct rules still accumulate independently onto the
// same tag.
func (c *Classifier) Classify(filePath string) map[string]float64 {
	normalized := normalize(filePath)
	out := make(map[string]float64)
	for _, r := range c.rules {
		if matchesRule(normalized, r.Pattern) {
			out[r.Tag] += r.Weight
		}
	}
	return out
}

// IsExcluded reports whether path matches any of patterns under the
// same alias-expansion rules as Classify.
func IsExcluded(filePath string, patterns []string) bool {
	normalized := normalize(filePath)
	for _, p := range patterns {
		if matchesGlob(normalized, p) || aliasMatch(normalized, p) {
			return true
		}
	}
	return false
}

// matchesRule applies the first-alias-wins rule: try the primary
// pattern, and only if it does not match, try the "**/" tail alias.
func matchesRule(normalized, pattern string) bool {
	if matchesGlob(normalized, pattern) {
		return true
	}
	return aliasMatch(normalized, pattern)
}

// aliasMatch tries the tail form of a "**/"-prefixed pattern.
func aliasMatch(normalized, pattern string) bool {
	if !strings.HasPrefix(pattern, "**/") {
		return false
	}
	tail := strings.TrimPrefix(pattern, "**/")
	return matchesGlob(normalized, tail)
}

func normalize(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// matchesGlob matches name against pattern with "**" spanning any number
// of path segments (including zero), via doublestar so this behaves the
// same as the rest of the example pack's glob-driven path matching.
func matchesGlob(name, pattern string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}
