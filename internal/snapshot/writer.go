package snapshot

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ownermine/ownermine/internal/analytics"
	"github.com/ownermine/ownermine/internal/community"
	"github.com/ownermine/ownermine/internal/model"
	"github.com/ownermine/ownermine/internal/ownererr"
)

// Options configures one snapshot write (C8). CommunityEnabled controls
// whether communities.json and the structured graph export are produced;
// GraphML additionally emits the "{ownership|cochange}.graphml" sibling.
type Options struct {
	Dir          string
	Repo         string
	Now          time.Time
	MinTouches   int
	CochangeMinCount   int
	CochangeMinJaccard float64

	CommunityEnabled bool
	CommunityOpts    community.Options
	GraphML          bool

	EmitCommits bool

	Analytics analytics.Options
	Params    Params
}

// Result reports what Write actually produced, for CLI summary output.
type Result struct {
	Communities []community.Community
	Summary     Summary
}

// Write renders the frozen graph g into the canonical artifact set (§4.8),
// creating opts.Dir if absent. Per §5, the writer either emits every
// requested artifact or returns an error; it never leaves the directory
// worse than it found it beyond the files it successfully replaced.
func Write(g *model.Graph, opts Options) (Result, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return Result{}, ownererr.Wrapf(err, ownererr.Config, "creating output directory %s", opts.Dir)
	}

	if err := writePeopleCSV(opts.Dir, g); err != nil {
		return Result{}, err
	}
	if err := writeFilesCSV(opts.Dir, g); err != nil {
		return Result{}, err
	}
	if err := writeEdgesCSV(opts.Dir, g, opts.MinTouches); err != nil {
		return Result{}, err
	}

	cochangeKept := 0
	if len(g.CoChange) > 0 {
		kept, err := writeCochangeEdgesCSV(opts.Dir, g, opts.CochangeMinCount, opts.CochangeMinJaccard)
		if err != nil {
			return Result{}, err
		}
		cochangeKept = kept
	}

	result := analytics.Analyze(g, opts.Analytics)

	var communities []community.Community
	if opts.CommunityEnabled {
		communities = community.Detect(g, opts.CommunityOpts)

		if err := writeJSON(filepath.Join(opts.Dir, "communities.json"), buildCommunitiesJSON(communities)); err != nil {
			return Result{}, err
		}

		kind, edges := community.FileGraph(g)
		graphDoc := buildGraphDoc(g, kind, edges, communities)

		graphPath := filepath.Join(opts.Dir, string(kind)+".graph.json")
		if err := writeJSON(graphPath, graphDoc); err != nil {
			return Result{}, err
		}

		if opts.GraphML {
			graphmlPath := filepath.Join(opts.Dir, string(kind)+".graphml")
			if err := writeGraphML(graphmlPath, graphDoc); err != nil {
				return Result{}, err
			}
		}
	}

	summary := buildSummary(g, result, opts.Repo, opts.Params, opts.Now, cochangeKept)
	if err := writeJSON(filepath.Join(opts.Dir, "summary.json"), summary); err != nil {
		return Result{}, err
	}

	if opts.EmitCommits {
		if err := writeCommitsJSONL(opts.Dir, g.Commits); err != nil {
			return Result{}, err
		}
	}

	return Result{Communities: communities, Summary: summary}, nil
}
