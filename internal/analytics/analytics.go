// Package analytics implements the analytics engine (C6): hidden
// owners, bus-factor hotspots, and orphaned sensitive code, all
// deterministic functions of the frozen graph.
package analytics

import (
	"sort"
	"time"

	"github.com/ownermine/ownermine/internal/model"
)

// HiddenOwner is one sensitivity tag's single reported dominant owner.
type HiddenOwner struct {
	Tag      string
	PersonID string
	Share    float64
}

// Hotspot is a bus-factor hotspot: a sensitive file with few
// contributors.
type Hotspot struct {
	Path      string
	BusFactor int
	LastSeen  time.Time
	Tags      []string
	TopOwner  string
}

// Orphan is a hotspot that has additionally gone stale.
type Orphan struct {
	Hotspot
	DaysStale int
}

// Options configures the thresholds C6 applies.
type Options struct {
	OwnerThreshold     float64
	BusFactorThreshold int
	StaleDays          int
	Now                time.Time
}

// Result bundles the three derived summaries.
type Result struct {
	HiddenOwners  []HiddenOwner
	Hotspots      []Hotspot
	Orphans       []Orphan
}

// Analyze derives hidden owners, bus-factor hotspots, and orphaned
// sensitive code from g. All three are pure functions of the frozen
// graph and opts.
func Analyze(g *model.Graph, opts Options) Result {
	return Result{
		HiddenOwners: hiddenOwners(g, opts.OwnerThreshold),
		Hotspots:     hotspots(g, opts.BusFactorThreshold),
		Orphans:      orphans(g, opts),
	}
}

// hiddenOwners accumulates each sensitive file's per-tag weight once per
// touch — mirroring edges.csv's sensitive_weight column, which is itself
// a per-touch accumulation (§4.5 step 8) — then finds the single
// dominant owner per tag (§4.6). W[p] and T are both sums of (tag
// weight × touch count), not an intra-file touch-share apportionment:
// a person with more touches on a tagged file accrues proportionally
// more of that tag's weight, regardless of how many other files or
// persons also carry the tag.
func hiddenOwners(g *model.Graph, threshold float64) []HiddenOwner {
	tagTotal := make(map[string]float64)
	personTagWeight := make(map[string]map[string]float64)

	var paths []string
	for p := range g.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		f := g.Files[path]
		if f.Touches == 0 {
			continue
		}
		var tags []string
		for tag := range f.Tags {
			tags = append(tags, tag)
		}
		sort.Strings(tags)

		for _, tag := range tags {
			w := f.Tags[tag]
			tagTotal[tag] += w * float64(f.Touches)

			for personID := range personTouchersOf(g, path) {
				edge := g.Edges[model.EdgeKey{PersonID: personID, FilePath: path}]
				if edge == nil || edge.Touches == 0 {
					continue
				}
				if personTagWeight[tag] == nil {
					personTagWeight[tag] = make(map[string]float64)
				}
				personTagWeight[tag][personID] += w * float64(edge.Touches)
			}
		}
	}

	var tags []string
	for tag := range tagTotal {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	var out []HiddenOwner
	for _, tag := range tags {
		total := tagTotal[tag]
		if total <= 0 {
			continue
		}
		var bestPerson string
		bestShare := -1.0
		var people []string
		for personID := range personTagWeight[tag] {
			people = append(people, personID)
		}
		sort.Strings(people)
		for _, personID := range people {
			share := personTagWeight[tag][personID] / total
			if share > bestShare {
				bestShare = share
				bestPerson = personID
			}
		}
		if bestPerson != "" && bestShare >= threshold {
			out = append(out, HiddenOwner{Tag: tag, PersonID: bestPerson, Share: bestShare})
		}
	}
	return out
}

func personTouchersOf(g *model.Graph, path string) map[string]struct{} {
	out := make(map[string]struct{})
	f := g.Files[path]
	if f == nil {
		return out
	}
	for personID := range f.Authors {
		out[personID] = struct{}{}
	}
	return out
}

func hotspots(g *model.Graph, busFactorThreshold int) []Hotspot {
	var paths []string
	for p := range g.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []Hotspot
	for _, path := range paths {
		f := g.Files[path]
		if len(f.Tags) == 0 {
			continue
		}
		if f.BusFactor() > busFactorThreshold {
			continue
		}

		var tags []string
		for tag := range f.Tags {
			tags = append(tags, tag)
		}
		sort.Strings(tags)

		out = append(out, Hotspot{
			Path:      path,
			BusFactor: f.BusFactor(),
			LastSeen:  f.LastSeen,
			Tags:      tags,
			TopOwner:  topOwnerOf(g, path),
		})
	}
	return out
}

// topOwnerOf returns the person with the largest touch count on path,
// ties broken lexicographically by person id.
func topOwnerOf(g *model.Graph, path string) string {
	f := g.Files[path]
	if f == nil {
		return ""
	}
	var candidates []string
	for personID := range f.Authors {
		candidates = append(candidates, personID)
	}
	sort.Strings(candidates)

	best := ""
	bestTouches := -1
	for _, personID := range candidates {
		edge := g.Edges[model.EdgeKey{PersonID: personID, FilePath: path}]
		if edge == nil {
			continue
		}
		if edge.Touches > bestTouches {
			bestTouches = edge.Touches
			best = personID
		}
	}
	return best
}

func orphans(g *model.Graph, opts Options) []Orphan {
	var out []Orphan
	for _, h := range hotspots(g, opts.BusFactorThreshold) {
		daysStale := int(opts.Now.Sub(h.LastSeen).Hours() / 24)
		if daysStale >= opts.StaleDays {
			out = append(out, Orphan{Hotspot: h, DaysStale: daysStale})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
