package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ownermine/ownermine/internal/classify"
	"github.com/ownermine/ownermine/internal/gitlog"
	"github.com/ownermine/ownermine/internal/identity"
)

func mustFilter(t *testing.T, extra []string, disableDefaults bool) *identity.Filter {
	t.Helper()
	f, err := identity.New(extra, disableDefaults, classify.DefaultAuthorExcludeRegexes())
	require.NoError(t, err)
	return f
}

func baseOpts(t *testing.T, now time.Time) BuildOptions {
	return BuildOptions{
		Identity:           "author",
		DateField:          "author",
		HalfLifeDays:       365,
		Now:                now,
		Classifier:         classify.New(classify.DefaultRules()),
		IdFilter:           mustFilter(t, nil, false),
		CochangeEnabled:    true,
		CochangeMaxFiles:   32,
		CochangeMinCount:   1,
		CochangeMinJaccard: 0,
		CochangeExclude:    classify.DefaultCochangeExcludes(),
	}
}

func commitAt(hash, name, email string, when time.Time, files ...string) gitlog.Commit {
	return gitlog.Commit{
		Hash:        hash,
		AuthorName:  name,
		AuthorEmail: email,
		AuthorDate:  when,
		Files:       files,
	}
}

// Scenario A — single contributor, single file.
func TestScenarioASingleContributorSingleFile(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewGraph(baseOpts(t, now))

	require.NoError(t, g.Visit(commitAt("c1", "alice", "alice@x", when, "auth/login.py")))

	require.Len(t, g.People, 1)
	p := g.People["alice@x"]
	assert.Equal(t, 1, p.Touches)
	assert.InDelta(t, 1.0, p.SensitiveTouches, 1e-9)

	f := g.Files["auth/login.py"]
	assert.Equal(t, 1, f.BusFactor())
	assert.InDelta(t, 1.0, f.SensitivityScore(), 1e-9)
	assert.Contains(t, f.Tags, "auth")

	assert.Equal(t, 1, g.Stats.Commits())
}

// Scenario B — two contributors, recency decay.
func TestScenarioBRecencyDecay(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	aliceWhen := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	bobWhen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	opts := baseOpts(t, now)
	opts.HalfLifeDays = 365
	g := NewGraph(opts)

	require.NoError(t, g.Visit(commitAt("c1", "alice", "alice@x", aliceWhen, "crypto/aes.rs")))
	require.NoError(t, g.Visit(commitAt("c2", "bob", "bob@x", bobWhen, "crypto/aes.rs")))

	aliceEdge := g.Edges[EdgeKey{PersonID: "alice@x", FilePath: "crypto/aes.rs"}]
	bobEdge := g.Edges[EdgeKey{PersonID: "bob@x", FilePath: "crypto/aes.rs"}]
	assert.InDelta(t, 0.5, aliceEdge.RecencyWeight, 1e-6)
	assert.InDelta(t, 1.0, bobEdge.RecencyWeight, 1e-9)

	f := g.Files["crypto/aes.rs"]
	assert.Equal(t, 2, f.BusFactor())
}

// Scenario C — co-change filtering.
func TestScenarioCCochangeFiltering(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	opts := baseOpts(t, now)
	opts.CochangeMinCount = 2
	g := NewGraph(opts)

	when := now
	require.NoError(t, g.Visit(commitAt("c1", "alice", "alice@x", when, "a.py", "b.py")))
	require.NoError(t, g.Visit(commitAt("c2", "alice", "alice@x", when, "a.py", "b.py", "c.py")))
	require.NoError(t, g.Visit(commitAt("c3", "alice", "alice@x", when, "a.py", "package-lock.json")))

	ab := g.CoChange[CoChangeKey{FileA: "a.py", FileB: "b.py"}]
	require.NotNil(t, ab)
	assert.Equal(t, 2, ab.Count)

	ac := g.CoChange[CoChangeKey{FileA: "a.py", FileB: "c.py"}]
	require.NotNil(t, ac)
	assert.Equal(t, 1, ac.Count)

	assert.Equal(t, 1, g.Stats.CochangeCommitsFiltered)
}

// Scenario D — bot exclusion.
func TestScenarioDBotExclusion(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewGraph(baseOpts(t, now))

	require.NoError(t, g.Visit(commitAt("c1", "dependabot[bot]", "noreply@github.com", now, "go.mod")))

	assert.Equal(t, 1, g.Stats.CommitsExcludedIdentities)
	assert.Empty(t, g.People)
}

func TestStatsCommitsInvariant(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewGraph(baseOpts(t, now))

	require.NoError(t, g.Visit(commitAt("c1", "alice", "alice@x", now, "a.py")))
	require.NoError(t, g.Visit(commitAt("c2", "dependabot[bot]", "noreply@github.com", now, "b.py")))
	mergeCommit := commitAt("c3", "alice", "alice@x", now, "c.py")
	mergeCommit.Parents = []string{"p1", "p2"}
	mergeCommit.IsMerge = true
	require.NoError(t, g.Visit(mergeCommit))
	require.NoError(t, g.Visit(commitAt("c4", "alice", "alice@x", now)))

	assert.Equal(t, 4, g.Stats.CommitsSeen)
	assert.Equal(t, 1, g.Stats.Commits())
}
