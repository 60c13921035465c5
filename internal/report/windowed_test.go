package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ownermine/ownermine/internal/gitlog"
)

func commitAt(hash, name, email string, when time.Time, files ...string) gitlog.Commit {
	return gitlog.Commit{Hash: hash, AuthorName: name, AuthorEmail: email, AuthorDate: when, Files: files}
}

func communitySet(paths ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		out[p] = struct{}{}
	}
	return out
}

// TestScenarioFCommitMode matches spec scenario F: monthly bucketing,
// touch_mode=commit.
func TestScenarioFCommitMode(t *testing.T) {
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

	commits := []gitlog.Commit{
		commitAt("c1", "alice", "alice@x", jan, "a", "b"),
		commitAt("c2", "alice", "alice@x", feb, "c"),
		commitAt("c3", "bob", "bob@x", feb, "a"),
	}

	periods := Generate(commits, SourceOptions{Identity: "author", DateField: "author"}, communitySet("a", "b", "c"), Options{
		Bucket:     BucketMonth,
		TouchMode:  TouchCommit,
		WeightMode: WeightTouches,
		Top:        10,
	})
	require.Len(t, periods, 2)

	assert.Equal(t, "2024-01", periods[0].Label)
	require.Len(t, periods[0].Rows, 1)
	assert.Equal(t, "alice@x", periods[0].Rows[0].PersonID)
	assert.InDelta(t, 1.0, periods[0].Rows[0].Contribution, 1e-9)
	assert.InDelta(t, 1.0, periods[0].Rows[0].Share, 1e-9)

	assert.Equal(t, "2024-02", periods[1].Label)
	require.Len(t, periods[1].Rows, 2)
	for _, r := range periods[1].Rows {
		assert.InDelta(t, 1.0, r.Contribution, 1e-9)
		assert.InDelta(t, 0.5, r.Share, 1e-9)
	}
}

// TestScenarioFFileMode matches spec scenario F with touch_mode=file.
func TestScenarioFFileMode(t *testing.T) {
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

	commits := []gitlog.Commit{
		commitAt("c1", "alice", "alice@x", jan, "a", "b"),
		commitAt("c2", "alice", "alice@x", feb, "c"),
		commitAt("c3", "bob", "bob@x", feb, "a"),
	}

	periods := Generate(commits, SourceOptions{Identity: "author", DateField: "author"}, communitySet("a", "b", "c"), Options{
		Bucket:     BucketMonth,
		TouchMode:  TouchFile,
		WeightMode: WeightTouches,
		Top:        10,
	})
	require.Len(t, periods, 2)

	require.Len(t, periods[0].Rows, 1)
	assert.InDelta(t, 2.0, periods[0].Rows[0].Contribution, 1e-9)

	require.Len(t, periods[1].Rows, 2)
	for _, r := range periods[1].Rows {
		assert.InDelta(t, 1.0, r.Contribution, 1e-9)
	}
}

func TestGenerateSkipsCommitsOutsideCommunity(t *testing.T) {
	when := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	commits := []gitlog.Commit{commitAt("c1", "alice", "alice@x", when, "unrelated.py")}

	periods := Generate(commits, SourceOptions{Identity: "author", DateField: "author"}, communitySet("a"), Options{
		Bucket: BucketMonth, TouchMode: TouchCommit, WeightMode: WeightTouches, Top: 10,
	})
	assert.Nil(t, periods)
}

func TestGenerateRecencyWeighting(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	commits := []gitlog.Commit{
		commitAt("c1", "alice", "alice@x", start, "a"),
		commitAt("c2", "bob", "bob@x", late, "a"),
	}

	periods := Generate(commits, SourceOptions{Identity: "author", DateField: "author"}, communitySet("a"), Options{
		Bucket:       BucketMonth,
		TouchMode:    TouchCommit,
		WeightMode:   WeightRecency,
		HalfLifeDays: 30,
		Top:          10,
	})
	require.Len(t, periods, 1)
	require.Len(t, periods[0].Rows, 2)
	// bob committed closer to the bucket end, so his recency weight (and
	// therefore rank) must exceed alice's.
	assert.Equal(t, "bob@x", periods[0].Rows[0].PersonID)
	assert.Greater(t, periods[0].Rows[0].Contribution, periods[0].Rows[1].Contribution)
}

func TestGenerateMinTouchesFilter(t *testing.T) {
	when := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	commits := []gitlog.Commit{
		commitAt("c1", "alice", "alice@x", when, "a"),
		commitAt("c2", "bob", "bob@x", when, "a"),
		commitAt("c3", "bob", "bob@x", when, "a"),
	}

	periods := Generate(commits, SourceOptions{Identity: "author", DateField: "author"}, communitySet("a"), Options{
		Bucket: BucketMonth, TouchMode: TouchCommit, WeightMode: WeightTouches, MinTouches: 2, Top: 10,
	})
	require.Len(t, periods, 1)
	require.Len(t, periods[0].Rows, 1)
	assert.Equal(t, "bob@x", periods[0].Rows[0].PersonID)
}

func TestGenerateQuarterBucketLabels(t *testing.T) {
	q1 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	q2 := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	commits := []gitlog.Commit{
		commitAt("c1", "alice", "alice@x", q1, "a"),
		commitAt("c2", "alice", "alice@x", q2, "a"),
	}

	periods := Generate(commits, SourceOptions{Identity: "author", DateField: "author"}, communitySet("a"), Options{
		Bucket: BucketQuarter, TouchMode: TouchCommit, WeightMode: WeightTouches, Top: 10,
	})
	require.Len(t, periods, 2)
	assert.Equal(t, "2024-Q1", periods[0].Label)
	assert.Equal(t, "2024-Q2", periods[1].Label)
}

func TestGenerateRollingWindow(t *testing.T) {
	jan10 := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	feb5 := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

	commits := []gitlog.Commit{
		commitAt("c1", "alice", "alice@x", jan10, "a"),
		commitAt("c2", "alice", "alice@x", feb5, "a"),
	}

	// A 55-day rolling window ending at the Feb bucket boundary (2024-03-01)
	// reaches back far enough to include the Jan 10 commit too.
	periods := Generate(commits, SourceOptions{Identity: "author", DateField: "author"}, communitySet("a"), Options{
		Bucket: BucketMonth, WindowDays: 55, TouchMode: TouchCommit, WeightMode: WeightTouches, Top: 10,
	})
	require.Len(t, periods, 2)
	require.Len(t, periods[1].Rows, 1)
	assert.InDelta(t, 2.0, periods[1].Rows[0].Contribution, 1e-9)
}
