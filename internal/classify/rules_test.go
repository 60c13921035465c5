package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMatchesDoubleStarAliasOnce(t *testing.T) {
	c := New([]Rule{
		{Pattern: "**/auth/**", Tag: "auth", Weight: 1.0},
	})
	got := c.Classify("src/auth/login.py")
	assert.Equal(t, map[string]float64{"auth": 1.0}, got)

	// Tail-aliased form (prefix stripped) must also match, and must not
	// double-count against the primary form for the same rule.
	got = c.Classify("auth/login.py")
	assert.Equal(t, map[string]float64{"auth": 1.0}, got)
}

func TestClassifyAccumulatesAcrossDistinctRules(t *testing.T) {
	c := New([]Rule{
		{Pattern: "**/auth/**", Tag: "auth", Weight: 1.0},
		{Pattern: "**/*login*", Tag: "auth", Weight: 0.5},
	})
	got := c.Classify("src/auth/login.py")
	assert.InDelta(t, 1.5, got["auth"], 1e-9)
}

func TestClassifyNoMatch(t *testing.T) {
	c := New(DefaultRules())
	got := c.Classify("src/widgets/button.py")
	assert.Empty(t, got)
}

func TestIsExcludedLockfile(t *testing.T) {
	assert.True(t, IsExcluded("package-lock.json", DefaultCochangeExcludes()))
	assert.True(t, IsExcluded("vendor/a/package-lock.json", DefaultCochangeExcludes()))
	assert.False(t, IsExcluded("src/main.go", DefaultCochangeExcludes()))
}

func TestNormalizesBackslashes(t *testing.T) {
	c := New([]Rule{{Pattern: "**/auth/**", Tag: "auth", Weight: 1.0}})
	got := c.Classify(`src\auth\login.py`)
	assert.Equal(t, map[string]float64{"auth": 1.0}, got)
}
