package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ownermine/ownermine/internal/ownererr"
	"github.com/ownermine/ownermine/internal/snapshot"
)

// CommunityFiles resolves id — a community id or a file path/substring —
// to its community's member file set, preferring the structured graph
// export over communities.json since the graph carries the untruncated
// member list for every node (§4.10 "Community lookup precedence").
func CommunityFiles(dir, id string) (communityID int, files []string, err error) {
	doc, ok, err := loadGraphDoc(dir)
	if err != nil {
		return 0, nil, err
	}
	if ok {
		return communityFilesFromGraph(doc, id)
	}
	return communityFilesFromCommunitiesJSON(dir, id)
}

func loadGraphDoc(dir string) (snapshot.GraphDoc, bool, error) {
	for _, name := range []string{"ownership.graph.json", "cochange.graph.json"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return snapshot.GraphDoc{}, false, ownererr.Wrapf(err, ownererr.Config, "reading %s", path)
		}
		var doc snapshot.GraphDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			return snapshot.GraphDoc{}, false, ownererr.Wrapf(err, ownererr.Config, "parsing %s", path)
		}
		return doc, true, nil
	}
	return snapshot.GraphDoc{}, false, nil
}

func communityFilesFromGraph(doc snapshot.GraphDoc, id string) (int, []string, error) {
	if n, convErr := strconv.Atoi(id); convErr == nil {
		files := filesInCommunity(doc, n)
		if len(files) == 0 {
			return 0, nil, ownererr.Newf(ownererr.NotFound, "no community with id %d", n)
		}
		return n, files, nil
	}

	ids := make([]string, 0, len(doc.Nodes))
	byID := make(map[string]int, len(doc.Nodes))
	for _, node := range doc.Nodes {
		ids = append(ids, node.ID)
		byID[node.ID] = node.CommunityID
	}
	resolved, err := resolveFile(id, ids)
	if err != nil {
		return 0, nil, err
	}
	cid := byID[resolved]
	return cid, filesInCommunity(doc, cid), nil
}

func filesInCommunity(doc snapshot.GraphDoc, id int) []string {
	var files []string
	for _, node := range doc.Nodes {
		if node.CommunityID == id {
			files = append(files, node.ID)
		}
	}
	sort.Strings(files)
	return files
}

// communityFilesFromCommunitiesJSON falls back to the truncated
// communities.json artifact. A file not found among any community's
// truncated file list is reported as a lookup failure rather than
// guessed, per §4.10, whenever at least one community's list was in
// fact truncated (so the miss might simply be off the truncated tail).
func communityFilesFromCommunitiesJSON(dir, id string) (int, []string, error) {
	path := filepath.Join(dir, "communities.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, ownererr.Wrapf(err, ownererr.MissingArtifact, "reading %s", path)
	}
	var comms []snapshot.CommunityJSON
	if err := json.Unmarshal(data, &comms); err != nil {
		return 0, nil, ownererr.Wrapf(err, ownererr.Config, "parsing %s", path)
	}

	if n, convErr := strconv.Atoi(id); convErr == nil {
		for _, c := range comms {
			if c.ID == n {
				return n, c.Files, nil
			}
		}
		return 0, nil, ownererr.Newf(ownererr.NotFound, "no community with id %d", n)
	}

	needle := strings.ToLower(id)
	anyTruncated := false
	for _, c := range comms {
		if c.Size > len(c.Files) {
			anyTruncated = true
		}
		for _, f := range c.Files {
			if strings.ToLower(f) == needle {
				return c.ID, c.Files, nil
			}
		}
	}

	type match struct {
		communityID int
		path        string
	}
	var matches []match
	for _, c := range comms {
		for _, f := range c.Files {
			if strings.Contains(strings.ToLower(f), needle) {
				matches = append(matches, match{communityID: c.ID, path: f})
			}
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].path < matches[j].path })

	switch len(matches) {
	case 1:
		for _, c := range comms {
			if c.ID == matches[0].communityID {
				return c.ID, c.Files, nil
			}
		}
	case 0:
		// fall through to the truncation check below
	default:
		var names []string
		for _, m := range matches {
			names = append(names, m.path)
		}
		return 0, nil, ownererr.AmbiguousWith("multiple files match "+id, names)
	}

	if anyTruncated {
		return 0, nil, ownererr.Newf(ownererr.MissingArtifact,
			"file %q not found in truncated communities.json file lists; rerun with the structured graph export enabled to resolve reliably", id)
	}
	return 0, nil, ownererr.Newf(ownererr.NotFound, "no file matching %q", id)
}

// resolveFile applies the same substring-resolution contract as the
// query engine's resolveOne (§4.9): exact match wins, else a unique
// substring match, else Ambiguous/NotFound.
func resolveFile(needle string, ids []string) (string, error) {
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
		return "", ownererr.Newf(ownererr.NotFound, "no file matching %q", needle)
	case 1:
		return matches[0], nil
	default:
		return "", ownererr.AmbiguousWith("multiple files match "+needle, matches)
	}
}
