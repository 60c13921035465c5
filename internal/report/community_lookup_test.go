package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ownermine/ownermine/internal/ownererr"
	"github.com/ownermine/ownermine/internal/snapshot"
)

func writeGraphDoc(t *testing.T, dir string, doc snapshot.GraphDoc) {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ownership.graph.json"), data, 0o644))
}

func writeCommunitiesJSON(t *testing.T, dir string, comms []snapshot.CommunityJSON) {
	t.Helper()
	data, err := json.Marshal(comms)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "communities.json"), data, 0o644))
}

func TestCommunityFilesFromGraphByID(t *testing.T) {
	dir := t.TempDir()
	writeGraphDoc(t, dir, snapshot.GraphDoc{
		Nodes: []snapshot.GraphNode{
			{ID: "a.py", CommunityID: 1},
			{ID: "b.py", CommunityID: 1},
			{ID: "c.py", CommunityID: 2},
		},
	})

	id, files, err := CommunityFiles(dir, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Equal(t, []string{"a.py", "b.py"}, files)
}

func TestCommunityFilesFromGraphByFileSubstring(t *testing.T) {
	dir := t.TempDir()
	writeGraphDoc(t, dir, snapshot.GraphDoc{
		Nodes: []snapshot.GraphNode{
			{ID: "src/auth/login.py", CommunityID: 3},
			{ID: "src/auth/session.py", CommunityID: 3},
			{ID: "src/other.py", CommunityID: 4},
		},
	})

	id, files, err := CommunityFiles(dir, "login.py")
	require.NoError(t, err)
	assert.Equal(t, 3, id)
	assert.ElementsMatch(t, []string{"src/auth/login.py", "src/auth/session.py"}, files)
}

func TestCommunityFilesFromGraphAmbiguous(t *testing.T) {
	dir := t.TempDir()
	writeGraphDoc(t, dir, snapshot.GraphDoc{
		Nodes: []snapshot.GraphNode{
			{ID: "src/auth/login.py", CommunityID: 1},
			{ID: "src/auth/logout.py", CommunityID: 2},
		},
	})

	_, _, err := CommunityFiles(dir, "auth/log")
	require.Error(t, err)
	assert.Equal(t, ownererr.Ambiguous, ownererr.KindOf(err))
}

func TestCommunityFilesFallsBackToCommunitiesJSON(t *testing.T) {
	dir := t.TempDir()
	writeCommunitiesJSON(t, dir, []snapshot.CommunityJSON{
		{ID: 1, Size: 2, Files: []string{"a.py", "b.py"}},
	})

	id, files, err := CommunityFiles(dir, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Equal(t, []string{"a.py", "b.py"}, files)
}

func TestCommunityFilesTruncatedListReportsMissingArtifact(t *testing.T) {
	dir := t.TempDir()
	// Size (5) exceeds the truncated Files list (2): a file outside the
	// truncated window must not be silently declared NotFound.
	writeCommunitiesJSON(t, dir, []snapshot.CommunityJSON{
		{ID: 1, Size: 5, Files: []string{"a.py", "b.py"}},
	})

	_, _, err := CommunityFiles(dir, "z.py")
	require.Error(t, err)
	assert.Equal(t, ownererr.MissingArtifact, ownererr.KindOf(err))
}

func TestCommunityFilesNotFoundWhenNoTruncation(t *testing.T) {
	dir := t.TempDir()
	writeCommunitiesJSON(t, dir, []snapshot.CommunityJSON{
		{ID: 1, Size: 2, Files: []string{"a.py", "b.py"}},
	})

	_, _, err := CommunityFiles(dir, "z.py")
	require.Error(t, err)
	assert.Equal(t, ownererr.NotFound, ownererr.KindOf(err))
}

func TestCommunityFilesNoArtifacts(t *testing.T) {
	dir := t.TempDir()
	_, _, err := CommunityFiles(dir, "1")
	require.Error(t, err)
	assert.Equal(t, ownererr.MissingArtifact, ownererr.KindOf(err))
}
