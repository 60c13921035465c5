package analytics

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

func newGraph(t *testing.T, now time.Time) *model.Graph {
	t.Helper()
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

func TestHiddenOwnerSingleToucherGetsFullShare(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	g := newGraph(t, now)
	require.NoError(t, g.Visit(commitAt("c1", "alice", "alice@x", now, "auth/login.py")))

	res := Analyze(g, Options{OwnerThreshold: 0.51, BusFactorThreshold: 1, StaleDays: 9999, Now: now})
	require.Len(t, res.HiddenOwners, 1)
	assert.Equal(t, "auth", res.HiddenOwners[0].Tag)
	assert.Equal(t, "alice@x", res.HiddenOwners[0].PersonID)
	assert.InDelta(t, 1.0, res.HiddenOwners[0].Share, 1e-9)
}

func TestHiddenOwnerTiedSharesRespectThreshold(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	g := newGraph(t, now)
	require.NoError(t, g.Visit(commitAt("c1", "alice", "alice@x", now, "crypto/aes.rs")))
	require.NoError(t, g.Visit(commitAt("c2", "bob", "bob@x", now, "crypto/aes.rs")))

	strict := Analyze(g, Options{OwnerThreshold: 0.51, BusFactorThreshold: 5, StaleDays: 9999, Now: now})
	assert.Empty(t, strict.HiddenOwners)

	lenient := Analyze(g, Options{OwnerThreshold: 0.5, BusFactorThreshold: 5, StaleDays: 9999, Now: now})
	require.Len(t, lenient.HiddenOwners, 1)
	assert.Equal(t, "alice@x", lenient.HiddenOwners[0].PersonID)
	assert.InDelta(t, 0.5, lenient.HiddenOwners[0].Share, 1e-9)
}

func TestHotspotRequiresSensitivityAndLowBusFactor(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	g := newGraph(t, now)
	require.NoError(t, g.Visit(commitAt("c1", "alice", "alice@x", now, "auth/login.py")))
	require.NoError(t, g.Visit(commitAt("c2", "alice", "alice@x", now, "README.md")))

	res := Analyze(g, Options{OwnerThreshold: 0.51, BusFactorThreshold: 1, StaleDays: 9999, Now: now})
	require.Len(t, res.Hotspots, 1)
	assert.Equal(t, "auth/login.py", res.Hotspots[0].Path)
	assert.Equal(t, "alice@x", res.Hotspots[0].TopOwner)
}

func TestOrphanRequiresHotspotAndStaleness(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(-1, 0, 0)
	g := newGraph(t, now)
	require.NoError(t, g.Visit(commitAt("c1", "alice", "alice@x", old, "auth/login.py")))

	fresh := Analyze(g, Options{OwnerThreshold: 0.51, BusFactorThreshold: 1, StaleDays: 9999, Now: now})
	assert.Empty(t, fresh.Orphans)

	stale := Analyze(g, Options{OwnerThreshold: 0.51, BusFactorThreshold: 1, StaleDays: 30, Now: now})
	require.Len(t, stale.Orphans, 1)
	assert.Equal(t, "auth/login.py", stale.Orphans[0].Path)
	assert.GreaterOrEqual(t, stale.Orphans[0].DaysStale, 30)
}
