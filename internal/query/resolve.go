package query

import (
	"sort"
	"strings"

	"github.com/ownermine/ownermine/internal/ownererr"
)

// resolveOne implements §4.9's substring resolution contract: an exact
// (case-insensitive) id match wins outright; otherwise a substring match
// must be unique. Zero matches is NotFound, more than one is Ambiguous
// with up to 10 candidate ids, sorted for determinism.
func resolveOne(needle string, ids []string) (string, error) {
	needleLower := strings.ToLower(needle)

	for _, id := range ids {
		if strings.ToLower(id) == needleLower {
			return id, nil
		}
	}

	var matches []string
	for _, id := range ids {
		if strings.Contains(strings.ToLower(id), needleLower) {
			matches = append(matches, id)
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return "", ownererr.Newf(ownererr.NotFound, "no id matching %q", needle)
	case 1:
		return matches[0], nil
	default:
		return "", ownererr.AmbiguousWith("multiple ids match "+needle, matches)
	}
}
