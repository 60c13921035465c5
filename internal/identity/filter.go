// Package identity implements the identity filter (C3): accepting or
// rejecting a commit's attributed identity against a compiled list of
// regular expressions.
package identity

import (
	"regexp"
	"strings"

	"github.com/ownermine/ownermine/internal/ownererr"
)

// Filter holds compiled exclusion patterns.
type Filter struct {
	patterns []*regexp.Regexp
}

// New compiles defaults (unless disabled) plus caller-supplied patterns,
// all case-insensitive per §4.3.
func New(extra []string, disableDefaults bool, defaults []string) (*Filter, error) {
	var raw []string
	if !disableDefaults {
		raw = append(raw, defaults...)
	}
	raw = append(raw, extra...)

	compiled := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		re, err := regexp.Compile("(?i)" + stripExistingFlag(p))
		if err != nil {
			return nil, ownererr.Wrapf(err, ownererr.Config, "compiling author-exclude pattern %q", p)
		}
		compiled = append(compiled, re)
	}
	return &Filter{patterns: compiled}, nil
}

// stripExistingFlag avoids doubling up an explicit "(?i)" a caller may
// already have included in their own pattern.
func stripExistingFlag(p string) string {
	return strings.TrimPrefix(p, "(?i)")
}

// Rejects reports whether the given name/email pair should be excluded:
// the filter tests the trimmed concatenation "<name> <email>" against
// every compiled pattern and rejects on any match.
func (f *Filter) Rejects(name, email string) bool {
	subject := strings.TrimSpace(name + " " + email)
	for _, re := range f.patterns {
		if re.MatchString(subject) {
			return true
		}
	}
	return false
}
