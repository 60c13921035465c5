package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ownermine/ownermine/internal/classify"
)

func TestDefaultExcludesRejectDependabot(t *testing.T) {
	f, err := New(nil, false, classify.DefaultAuthorExcludeRegexes())
	require.NoError(t, err)
	assert.True(t, f.Rejects("dependabot[bot]", "noreply@github.com"))
	assert.False(t, f.Rejects("alice", "alice@example.com"))
}

func TestNoDefaultExcludesDisablesThem(t *testing.T) {
	f, err := New(nil, true, classify.DefaultAuthorExcludeRegexes())
	require.NoError(t, err)
	assert.False(t, f.Rejects("dependabot[bot]", "noreply@github.com"))
}

func TestExtraPatternAppliesOnTopOfDefaults(t *testing.T) {
	f, err := New([]string{"evilbot"}, false, classify.DefaultAuthorExcludeRegexes())
	require.NoError(t, err)
	assert.True(t, f.Rejects("EvilBot", "evil@example.com"))
	assert.True(t, f.Rejects("dependabot[bot]", "noreply@github.com"))
}
