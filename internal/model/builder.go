package model

import (
	"sort"
	"time"

	"github.com/ownermine/ownermine/internal/classify"
	"github.com/ownermine/ownermine/internal/gitlog"
	"github.com/ownermine/ownermine/internal/identity"
	"github.com/ownermine/ownermine/internal/weight"
)

// Stats accumulates the ingestion counters §6/§8 require.
type Stats struct {
	CommitsSeen              int
	CommitsExcludedIdentities int
	CommitsExcludedMerges    int
	CommitsWithNoFiles       int

	CochangeCommitsUsed     int
	CochangeCommitsSkipped  int
	CochangeCommitsFiltered int
	CochangeFilesExcluded   int
}

// Commits returns the number of accepted commits, per §8 invariant 1.
func (s Stats) Commits() int {
	return s.CommitsSeen - s.CommitsExcludedIdentities - s.CommitsExcludedMerges - s.CommitsWithNoFiles
}

// BuildOptions configures one graph-building pass.
type BuildOptions struct {
	Identity      string // "author" or "committer"
	DateField     string // "author" or "committer"
	IncludeMerges bool
	HalfLifeDays  float64
	Now           time.Time

	Classifier *classify.Classifier
	IdFilter   *identity.Filter

	CochangeEnabled    bool
	CochangeMaxFiles   int
	CochangeMinCount   int
	CochangeMinJaccard float64
	CochangeExclude    []string

	EmitCommits bool
}

// Graph is the engine's frozen-after-ingestion in-memory model: one
// mutable object built by a single streaming pass over the commit log,
// then treated as read-only by C6/C7/C8 (§9 "Global state").
type Graph struct {
	People   map[string]*Person
	Files    map[string]*File
	Edges    map[EdgeKey]*TouchEdge
	CoChange map[CoChangeKey]*CoChangeEdge
	Stats    Stats
	Commits  []gitlog.Commit

	fileCommitCount map[string]int
	opts            BuildOptions
}

// NewGraph allocates an empty graph ready for Visit.
func NewGraph(opts BuildOptions) *Graph {
	return &Graph{
		People:           make(map[string]*Person),
		Files:            make(map[string]*File),
		Edges:            make(map[EdgeKey]*TouchEdge),
		CoChange:         make(map[CoChangeKey]*CoChangeEdge),
		fileCommitCount:  make(map[string]int),
		opts:             opts,
	}
}

// Visit implements gitlog.VisitFunc: it is the per-commit step of C5's
// main loop (§4.5).
func (g *Graph) Visit(c gitlog.Commit) error {
	g.Stats.CommitsSeen++

	if c.IsMerge && !g.opts.IncludeMerges {
		g.Stats.CommitsExcludedMerges++
		return nil
	}

	name := c.IdentityName(g.opts.Identity)
	email := c.IdentityEmail(g.opts.Identity)
	if g.opts.IdFilter != nil && g.opts.IdFilter.Rejects(name, email) {
		g.Stats.CommitsExcludedIdentities++
		return nil
	}

	if len(c.Files) == 0 {
		g.Stats.CommitsWithNoFiles++
		return nil
	}

	personID := email
	if personID == "" {
		personID = name
	}

	date := c.Date(g.opts.DateField)
	tzMinutes := c.TZMinutes(g.opts.DateField)
	recency := weight.Recency(float64(g.opts.Now.Unix()), float64(date.Unix()), g.opts.HalfLifeDays)

	person := g.touchPerson(personID, name, date, tzMinutes)

	for _, path := range c.Files {
		tags := g.opts.Classifier.Classify(path)
		sensitiveTotal := sumWeights(tags)

		person.Touches++
		person.SensitiveTouches += sensitiveTotal

		file := g.touchFile(path, date, personID, tags)
		file.Touches++

		g.touchEdge(personID, path, date, recency, sensitiveTotal)
	}
	person.CommitCount++

	if g.opts.CochangeEnabled {
		g.accountCoChange(c.Files)
	}

	if g.opts.EmitCommits {
		g.Commits = append(g.Commits, c)
	}

	return nil
}

func (g *Graph) touchPerson(id, name string, date time.Time, tzMinutes int) *Person {
	p, ok := g.People[id]
	if !ok {
		p = &Person{
			ID:        id,
			Name:      name,
			FirstSeen: date,
			LastSeen:  date,
			TZMinutes: make(map[int]int),
		}
		g.People[id] = p
	}
	if date.Before(p.FirstSeen) {
		p.FirstSeen = date
	}
	if date.After(p.LastSeen) {
		p.LastSeen = date
	}
	p.TZMinutes[tzMinutes]++
	return p
}

func (g *Graph) touchFile(path string, date time.Time, personID string, tags map[string]float64) *File {
	f, ok := g.Files[path]
	if !ok {
		f = &File{
			Path:      path,
			FirstSeen: date,
			LastSeen:  date,
			Authors:   make(map[string]struct{}),
			Tags:      make(map[string]float64),
		}
		g.Files[path] = f
	}
	if date.Before(f.FirstSeen) {
		f.FirstSeen = date
	}
	if date.After(f.LastSeen) {
		f.LastSeen = date
	}
	f.CommitCount++
	f.Authors[personID] = struct{}{}
	// Classification is path-only and deterministic, so overwriting on
	// every touch is idempotent (§4.5 step 7, §9 open question a).
	f.Tags = tags
	return f
}

func (g *Graph) touchEdge(personID, path string, date time.Time, recency, sensitiveWeight float64) {
	key := EdgeKey{PersonID: personID, FilePath: path}
	e, ok := g.Edges[key]
	if !ok {
		e = &TouchEdge{
			PersonID:  personID,
			FilePath:  path,
			FirstSeen: date,
			LastSeen:  date,
		}
		g.Edges[key] = e
	}
	if date.Before(e.FirstSeen) {
		e.FirstSeen = date
	}
	if date.After(e.LastSeen) {
		e.LastSeen = date
	}
	e.Touches++
	e.RecencyWeight += recency
	e.SensitiveWeight += sensitiveWeight
}

// accountCoChange implements §4.5.1. Commits touching fewer than two
// raw files never enter the co-change accounting at all (they cannot
// contribute a pair regardless of exclusion), so none of the counters
// below fire for them.
func (g *Graph) accountCoChange(rawFiles []string) {
	if len(rawFiles) < 2 {
		return
	}
	if len(rawFiles) > g.opts.CochangeMaxFiles {
		g.Stats.CochangeCommitsSkipped++
		return
	}

	filtered := make([]string, 0, len(rawFiles))
	for _, p := range rawFiles {
		if classify.IsExcluded(p, g.opts.CochangeExclude) {
			g.Stats.CochangeFilesExcluded++
			continue
		}
		filtered = append(filtered, p)
	}

	if len(filtered) < 2 {
		g.Stats.CochangeCommitsFiltered++
		return
	}

	sort.Strings(filtered)
	for _, p := range filtered {
		g.fileCommitCount[p]++
	}

	for i := 0; i < len(filtered); i++ {
		for j := i + 1; j < len(filtered); j++ {
			a, b := filtered[i], filtered[j]
			key := CoChangeKey{FileA: a, FileB: b}
			e, ok := g.CoChange[key]
			if !ok {
				e = &CoChangeEdge{FileA: a, FileB: b}
				g.CoChange[key] = e
			}
			e.Count++
		}
	}
	g.Stats.CochangeCommitsUsed++
}

// FileCommitCount returns the number of post-exclusion co-change
// commits that touched path, used for Jaccard denominators in C8.
func (g *Graph) FileCommitCount(path string) int {
	return g.fileCommitCount[path]
}

func sumWeights(tags map[string]float64) float64 {
	total := 0.0
	for _, w := range tags {
		total += w
	}
	return total
}
