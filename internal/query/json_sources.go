package query

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ownermine/ownermine/internal/ownererr"
	"github.com/ownermine/ownermine/internal/snapshot"
)

func loadSummary(dir string) (snapshot.Summary, error) {
	var s snapshot.Summary
	path := filepath.Join(dir, "summary.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return s, ownererr.Wrapf(err, ownererr.MissingArtifact, "reading %s", path)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, ownererr.Wrapf(err, ownererr.Config, "parsing %s", path)
	}
	return s, nil
}

func loadCommunities(dir string) ([]snapshot.CommunityJSON, error) {
	path := filepath.Join(dir, "communities.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ownererr.Wrapf(err, ownererr.MissingArtifact, "reading %s", path)
	}
	var out []snapshot.CommunityJSON
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, ownererr.Wrapf(err, ownererr.Config, "parsing %s", path)
	}
	return out, nil
}

func toCommunityEntry(c snapshot.CommunityJSON, includeFiles bool, fileLimit int) CommunityEntry {
	entry := CommunityEntry{
		ID:         c.ID,
		Size:       c.Size,
		BusFactor:  c.BusFactor,
		OwnerCount: c.OwnerCount,
		Totals: CommunityTotals{
			Touches:         c.Totals.Touches,
			RecencyWeight:   c.Totals.RecencyWeight,
			SensitiveWeight: c.Totals.SensitiveWeight,
		},
	}
	for _, m := range c.Maintainers {
		entry.Maintainers = append(entry.Maintainers, CommunityOwner{
			PersonID:       m.PersonID,
			Name:           m.Name,
			Touches:        m.Touches,
			TouchShare:     m.TouchShare,
			RecencyShare:   m.RecencyShare,
			SensitiveShare: m.SensitiveShare,
			PrimaryTZ:      m.PrimaryTZ,
		})
	}
	if includeFiles {
		files := c.Files
		if fileLimit > 0 && len(files) > fileLimit {
			entry.Truncated = true
			files = files[:fileLimit]
		}
		entry.Files = files
	}
	return entry
}
