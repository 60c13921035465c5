package community

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ownermine/ownermine/internal/classify"
	"github.com/ownermine/ownermine/internal/gitlog"
	"github.com/ownermine/ownermine/internal/identity"
	"github.com/ownermine/ownermine/internal/model"
)

func newGraph(t *testing.T) *model.Graph {
	t.Helper()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f, err := identity.New(nil, false, classify.DefaultAuthorExcludeRegexes())
	require.NoError(t, err)
	return model.NewGraph(model.BuildOptions{
		Identity:           "author",
		DateField:          "author",
		HalfLifeDays:       365,
		Now:                now,
		Classifier:         classify.New(classify.DefaultRules()),
		IdFilter:           f,
		CochangeEnabled:    true,
		CochangeMaxFiles:   32,
		CochangeMinCount:   1,
		CochangeExclude:    classify.DefaultCochangeExcludes(),
	})
}

func commitAt(hash, name, email string, when time.Time, files ...string) gitlog.Commit {
	return gitlog.Commit{Hash: hash, AuthorName: name, AuthorEmail: email, AuthorDate: when, Files: files}
}

func TestDetectGroupsCochangingFilesTogether(t *testing.T) {
	g := newGraph(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, g.Visit(commitAt("c1", "alice", "alice@x", now, "a.py", "b.py")))
	require.NoError(t, g.Visit(commitAt("c2", "alice", "alice@x", now, "a.py", "b.py")))
	require.NoError(t, g.Visit(commitAt("c3", "bob", "bob@x", now, "z.py", "y.py")))
	require.NoError(t, g.Visit(commitAt("c4", "bob", "bob@x", now, "z.py", "y.py")))

	communities := Detect(g, Options{TopOwners: 5, MaxFiles: 10})
	require.NotEmpty(t, communities)

	covered := make(map[string]int)
	for _, c := range communities {
		for _, f := range c.AllFiles {
			covered[f]++
		}
	}
	for _, path := range []string{"a.py", "b.py", "z.py", "y.py"} {
		assert.Equal(t, 1, covered[path], "file %s must belong to exactly one community", path)
	}
}

func TestDetectRollupTotalsMatchTouches(t *testing.T) {
	g := newGraph(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, g.Visit(commitAt("c1", "alice", "alice@x", now, "a.py")))

	communities := Detect(g, Options{TopOwners: 5, MaxFiles: 10})
	require.Len(t, communities, 1)
	assert.Equal(t, 1, communities[0].Totals.Touches)
	assert.Equal(t, 1, communities[0].BusFactor)
	require.Len(t, communities[0].Maintainers, 1)
	assert.Equal(t, "alice@x", communities[0].Maintainers[0].PersonID)
	assert.InDelta(t, 1.0, communities[0].Maintainers[0].TouchShare, 1e-9)
}
