// Package community implements the community engine (C7): partitions
// the frozen graph into modularity-maximising clusters and rolls up
// per-community ownership metadata.
package community

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/ownermine/ownermine/internal/model"
)

// Owner is one person's rollup within a community.
type Owner struct {
	PersonID     string
	Name         string
	Touches      int
	TouchShare   float64
	RecencyShare float64
	SensitiveShare float64
	PrimaryTZ    int
}

// Totals aggregates a community's raw metric sums.
type Totals struct {
	Touches         int
	RecencyWeight   float64
	SensitiveWeight float64
}

// Community is one rollup produced by Detect. Files is truncated to
// max_community_files for artifact emission; AllFiles is the full
// member set, needed to assign a community id to every node in the
// structured graph export.
type Community struct {
	ID          int
	Files       []string
	AllFiles    []string
	BusFactor   int
	OwnerCount  int
	Totals      Totals
	Maintainers []Owner
}

// Options configures community detection and rollup truncation.
type Options struct {
	TopOwners    int
	MaxFiles     int
	Resolution   float64
}

// WeightedEdge is one edge of the file-vertex graph C7 partitions,
// exported so the snapshot writer (C8) can replay the same graph choice
// into the structured graph.json export without re-deriving it.
type WeightedEdge struct {
	FileA  string
	FileB  string
	Weight float64
}

// GraphKind names which of §4.7's two graph choices FileGraph picked.
type GraphKind string

const (
	GraphCochange  GraphKind = "cochange"
	GraphOwnership GraphKind = "ownership"
)

// FileGraph builds the same file-vertex weighted graph Detect partitions:
// co-change edges (weight = Jaccard) when co-change edges exist post
// filtering, otherwise a touch-weighted projection of the bipartite
// person-file graph (§4.7 "Graph choice").
func FileGraph(g *model.Graph) (GraphKind, []WeightedEdge) {
	if len(g.CoChange) > 0 {
		return GraphCochange, cochangeWeightedEdges(g)
	}
	return GraphOwnership, projectedWeightedEdges(g)
}

func cochangeWeightedEdges(g *model.Graph) []WeightedEdge {
	var out []WeightedEdge
	for key, e := range g.CoChange {
		ca := g.FileCommitCount(key.FileA)
		cb := g.FileCommitCount(key.FileB)
		denom := ca + cb - e.Count
		if denom <= 0 {
			continue
		}
		jaccard := float64(e.Count) / float64(denom)
		if jaccard <= 0 {
			continue
		}
		out = append(out, WeightedEdge{FileA: key.FileA, FileB: key.FileB, Weight: jaccard})
	}
	return out
}

func projectedWeightedEdges(g *model.Graph) []WeightedEdge {
	personFiles := make(map[string][]string)
	for path := range g.Files {
		for personID := range g.Files[path].Authors {
			personFiles[personID] = append(personFiles[personID], path)
		}
	}

	pairWeight := make(map[model.CoChangeKey]float64)
	for personID, files := range personFiles {
		sort.Strings(files)
		for i := 0; i < len(files); i++ {
			for j := i + 1; j < len(files); j++ {
				a, b := files[i], files[j]
				ea := g.Edges[model.EdgeKey{PersonID: personID, FilePath: a}]
				eb := g.Edges[model.EdgeKey{PersonID: personID, FilePath: b}]
				if ea == nil || eb == nil {
					continue
				}
				w := float64(ea.Touches)
				if float64(eb.Touches) < w {
					w = float64(eb.Touches)
				}
				pairWeight[model.CoChangeKey{FileA: a, FileB: b}] += w
			}
		}
	}

	var out []WeightedEdge
	for key, w := range pairWeight {
		if w <= 0 {
			continue
		}
		out = append(out, WeightedEdge{FileA: key.FileA, FileB: key.FileB, Weight: w})
	}
	return out
}

// Detect partitions g's files into communities and computes the
// per-community rollup described in the spec's Community Engine
// section. The graph choice follows §4.7: co-change edges when
// present, otherwise a touch-weighted projection of the bipartite
// person-file graph.
func Detect(g *model.Graph, opts Options) []Community {
	if opts.Resolution <= 0 {
		opts.Resolution = 1
	}

	var paths []string
	for p := range g.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil
	}

	index := make(map[string]int64, len(paths))
	for i, p := range paths {
		index[p] = int64(i)
	}

	wg := simple.NewWeightedUndirectedGraph(0, 0)
	for _, id := range index {
		wg.AddNode(simple.Node(id))
	}

	_, edges := FileGraph(g)
	for _, e := range edges {
		wg.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(index[e.FileA]),
			T: simple.Node(index[e.FileB]),
			W: e.Weight,
		})
	}

	reduced := community.Modularize(wg, opts.Resolution, rand.NewSource(1))
	groups := reduced.Structure()

	communities := make([]Community, 0, len(groups))
	for i, group := range groups {
		files := make([]string, 0, len(group))
		for _, n := range group {
			files = append(files, paths[n.ID()])
		}
		sort.Strings(files)
		communities = append(communities, rollup(g, i+1, files, opts))
	}
	return communities
}


func rollup(g *model.Graph, id int, files []string, opts Options) Community {
	touchTotals := make(map[string]int)
	recencyTotals := make(map[string]float64)
	sensitiveTotals := make(map[string]float64)
	contributors := make(map[string]struct{})

	var totals Totals
	for _, path := range files {
		f := g.Files[path]
		if f == nil {
			continue
		}
		for personID := range f.Authors {
			contributors[personID] = struct{}{}
			edge := g.Edges[model.EdgeKey{PersonID: personID, FilePath: path}]
			if edge == nil {
				continue
			}
			touchTotals[personID] += edge.Touches
			recencyTotals[personID] += edge.RecencyWeight
			sensitiveTotals[personID] += edge.SensitiveWeight
			totals.Touches += edge.Touches
			totals.RecencyWeight += edge.RecencyWeight
			totals.SensitiveWeight += edge.SensitiveWeight
		}
	}

	var people []string
	for personID := range touchTotals {
		people = append(people, personID)
	}
	sort.Slice(people, func(i, j int) bool {
		if touchTotals[people[i]] != touchTotals[people[j]] {
			return touchTotals[people[i]] > touchTotals[people[j]]
		}
		return people[i] < people[j]
	})

	top := opts.TopOwners
	if top <= 0 || top > len(people) {
		top = len(people)
	}

	maintainers := make([]Owner, 0, top)
	for _, personID := range people[:top] {
		p := g.People[personID]
		name := personID
		tz := 0
		if p != nil {
			name = p.Name
			tz = p.PrimaryTZ()
		}
		owner := Owner{
			PersonID: personID,
			Name:     name,
			Touches:  touchTotals[personID],
			PrimaryTZ: tz,
		}
		if totals.Touches > 0 {
			owner.TouchShare = float64(touchTotals[personID]) / float64(totals.Touches)
		}
		if totals.RecencyWeight > 0 {
			owner.RecencyShare = recencyTotals[personID] / totals.RecencyWeight
		}
		if totals.SensitiveWeight > 0 {
			owner.SensitiveShare = sensitiveTotals[personID] / totals.SensitiveWeight
		}
		maintainers = append(maintainers, owner)
	}

	truncatedFiles := files
	if opts.MaxFiles > 0 && len(truncatedFiles) > opts.MaxFiles {
		truncatedFiles = truncatedFiles[:opts.MaxFiles]
	}

	return Community{
		ID:          id,
		Files:       truncatedFiles,
		AllFiles:    files,
		BusFactor:   len(contributors),
		OwnerCount:  len(contributors),
		Totals:      totals,
		Maintainers: maintainers,
	}
}
