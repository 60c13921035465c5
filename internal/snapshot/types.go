// Package snapshot implements the snapshot writer (C8): it renders the
// frozen graph (model.Graph), the analytics summary (C6), and the
// community rollup (C7) into the canonical artifact set the query
// engine (C9) and windowed report (C10) consume.
package snapshot

import "time"

// Params echoes the mining, co-change and community knobs into
// summary.json (§6). RepoPath is the repository path as configured, and
// CochangeExclude lists only the user-supplied exclusion globs, not the
// compiled-in defaults. The sensitive-rules path, the author-exclusion
// regexes, the switches that disable the default author and co-change
// exclusions, and the commits.jsonl switch are not echoed.
type Params struct {
	RepoPath            string   `json:"repo_path"`
	Since               string   `json:"since,omitempty"`
	Until               string   `json:"until,omitempty"`
	Identity            string   `json:"identity"`
	DateField           string   `json:"date_field"`
	IncludeMerges       bool     `json:"include_merges"`
	HalfLifeDays        float64  `json:"half_life_days"`
	OwnerThreshold      float64  `json:"owner_threshold"`
	BusFactorThreshold  int      `json:"bus_factor_threshold"`
	StaleDays           int      `json:"stale_days"`
	MinTouches          int      `json:"min_touches"`
	CochangeEnabled     bool     `json:"cochange_enabled"`
	CochangeMaxFiles    int      `json:"cochange_max_files"`
	CochangeMinCount    int      `json:"cochange_min_count"`
	CochangeMinJaccard  float64  `json:"cochange_min_jaccard"`
	CochangeExclude     []string `json:"cochange_exclude,omitempty"`
	CommunityEnabled    bool     `json:"community_enabled"`
	CommunityTopOwners  int      `json:"community_top_owners"`
	MaxCommunityFiles   int      `json:"max_community_files"`
}

// Stats mirrors §6's summary.json "stats" object.
type Stats struct {
	Commits                 int `json:"commits"`
	CommitsSeen             int `json:"commits_seen"`
	CommitsExcludedIdentities int `json:"commits_excluded_identities"`
	CommitsExcludedMerges   int `json:"commits_excluded_merges"`
	Edges                   int `json:"edges"`
	People                  int `json:"people"`
	Files                   int `json:"files"`
	CochangePairsTotal      int `json:"cochange_pairs_total"`
	CochangeEdges           int `json:"cochange_edges"`
	CochangeCommitsUsed     int `json:"cochange_commits_used"`
	CochangeCommitsSkipped  int `json:"cochange_commits_skipped"`
	CochangeCommitsFiltered int `json:"cochange_commits_filtered"`
	CochangeFilesExcluded   int `json:"cochange_files_excluded"`
}

// HiddenOwnerJSON is the summary.json shape for one analytics.HiddenOwner.
type HiddenOwnerJSON struct {
	Tag      string  `json:"tag"`
	PersonID string  `json:"person_id"`
	Share    float64 `json:"share"`
}

// HotspotJSON is the summary.json shape for one analytics.Hotspot.
type HotspotJSON struct {
	Path      string    `json:"path"`
	BusFactor int       `json:"bus_factor"`
	LastSeen  time.Time `json:"last_seen"`
	Tags      []string  `json:"tags"`
	TopOwner  string    `json:"top_owner"`
}

// OrphanJSON is the summary.json shape for one analytics.Orphan.
type OrphanJSON struct {
	HotspotJSON
	DaysStale int `json:"days_stale"`
}

// Summary is the full summary.json document.
type Summary struct {
	GeneratedAt           time.Time         `json:"generated_at"`
	Repo                  string            `json:"repo"`
	Parameters            Params            `json:"parameters"`
	OrphanedSensitiveCode []OrphanJSON      `json:"orphaned_sensitive_code"`
	HiddenOwners          []HiddenOwnerJSON `json:"hidden_owners"`
	BusFactorHotspots     []HotspotJSON     `json:"bus_factor_hotspots"`
	Stats                 Stats             `json:"stats"`
}

// OwnerJSON is the communities.json / community_maintainers shape for one
// community.Owner.
type OwnerJSON struct {
	PersonID       string  `json:"person_id"`
	Name           string  `json:"name"`
	Touches        int     `json:"touches"`
	TouchShare     float64 `json:"touch_share"`
	RecencyShare   float64 `json:"recency_share"`
	SensitiveShare float64 `json:"sensitive_share"`
	PrimaryTZ      string  `json:"primary_tz"`
}

// TotalsJSON is the communities.json "totals" object.
type TotalsJSON struct {
	Touches         int     `json:"touches"`
	RecencyWeight   float64 `json:"recency_weight"`
	SensitiveWeight float64 `json:"sensitive_weight"`
}

// CommunityJSON is one entry of communities.json.
type CommunityJSON struct {
	ID          int         `json:"id"`
	Size        int         `json:"size"`
	Files       []string    `json:"files"`
	Maintainers []OwnerJSON `json:"maintainers"`
	BusFactor   int         `json:"bus_factor"`
	OwnerCount  int         `json:"owner_count"`
	Totals      TotalsJSON  `json:"totals"`
}

// CommunityMaintainer is the un-truncated rollup carried by the
// structured graph's "community_maintainers" global attribute — same
// shape as CommunityJSON but without the member-file list (§4.7).
type CommunityMaintainer struct {
	ID          int         `json:"id"`
	Size        int         `json:"size"`
	Maintainers []OwnerJSON `json:"maintainers"`
	BusFactor   int         `json:"bus_factor"`
	OwnerCount  int         `json:"owner_count"`
	Totals      TotalsJSON  `json:"totals"`
}

// GraphNode is one node-link node, optionally tagged with a community id.
type GraphNode struct {
	ID          string `json:"id"`
	CommunityID int    `json:"community_id,omitempty"`
}

// GraphLink is one node-link edge.
type GraphLink struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// GraphDoc is the standard node-link JSON document §6 requires for
// ownership.graph.json / cochange.graph.json.
type GraphDoc struct {
	Directed   bool                   `json:"directed"`
	Multigraph bool                   `json:"multigraph"`
	Graph      GraphAttrs             `json:"graph"`
	Nodes      []GraphNode            `json:"nodes"`
	Links      []GraphLink            `json:"links"`
}

// GraphAttrs is the node-link document's top-level "graph" attribute bag.
type GraphAttrs struct {
	CommunityMaintainers []CommunityMaintainer `json:"community_maintainers,omitempty"`
}
