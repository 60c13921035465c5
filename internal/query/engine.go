package query

import (
	"strconv"
	"strings"

	"github.com/ownermine/ownermine/internal/ownererr"
	"github.com/ownermine/ownermine/internal/snapshot"
)

// Engine answers the bounded query operations of §4.9 against one
// snapshot directory, through a RecordSource that may be the plain CSVs
// or the optional SQLite index (§4.9A). A Cache may additionally wrap
// the engine at the CLI layer (C14); the engine itself never caches.
type Engine struct {
	Dir    string
	Source RecordSource
}

// NewEngine returns an Engine backed by source. Passing nil uses the
// default CSV-scanning source.
func NewEngine(dir string, source RecordSource) *Engine {
	if source == nil {
		source = NewCSVSource()
	}
	return &Engine{Dir: dir, Source: source}
}

// People implements the "people" operation.
func (e *Engine) People(filter PeopleFilter) ([]PersonRow, error) {
	rows, err := e.Source.People(e.Dir)
	if err != nil {
		return nil, err
	}
	out := rows[:0:0]
	for _, p := range rows {
		if filter.EmailSubstring != "" && !strings.Contains(strings.ToLower(p.Email), strings.ToLower(filter.EmailSubstring)) {
			continue
		}
		if p.Touches < filter.MinTouches {
			continue
		}
		if p.SensitiveTouches < filter.MinSensitive {
			continue
		}
		out = append(out, p)
	}
	return sortLimitPeople(out, filter.SortKey, filter.Limit), nil
}

// Files implements the "files" operation.
func (e *Engine) Files(filter FilesFilter) ([]FileRow, error) {
	rows, err := e.Source.Files(e.Dir)
	if err != nil {
		return nil, err
	}
	out := rows[:0:0]
	for _, f := range rows {
		if filter.PathSubstring != "" && !strings.Contains(strings.ToLower(f.Path), strings.ToLower(filter.PathSubstring)) {
			continue
		}
		if filter.Tag != "" && !hasTag(f.SensitivityTags, filter.Tag) {
			continue
		}
		if filter.MaxBusFactor > 0 && f.BusFactor > filter.MaxBusFactor {
			continue
		}
		if f.SensitivityScore < filter.MinSensitivity {
			continue
		}
		out = append(out, f)
	}
	return sortLimitFiles(out, filter.SortKey, filter.Limit), nil
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

// Person implements the "person" operation: resolve personID by
// substring, then return the person plus their top touched files.
func (e *Engine) Person(personID, sortKey string, limit int) (PersonResult, error) {
	people, err := e.Source.People(e.Dir)
	if err != nil {
		return PersonResult{}, err
	}
	ids := make([]string, 0, len(people))
	byID := make(map[string]PersonRow, len(people))
	for _, p := range people {
		ids = append(ids, p.PersonID)
		byID[p.PersonID] = p
	}
	resolved, err := resolveOne(personID, ids)
	if err != nil {
		return PersonResult{}, err
	}

	edges, err := e.Source.Edges(e.Dir)
	if err != nil {
		return PersonResult{}, err
	}
	var matching []EdgeRow
	for _, ed := range edges {
		if ed.PersonID == resolved {
			matching = append(matching, ed)
		}
	}
	key := sortKey
	if key == "" {
		key = "touches"
	}
	return PersonResult{Person: byID[resolved], TopFiles: sortLimitEdges(matching, key, limit)}, nil
}

// File implements the "file" operation: resolve fileID by substring,
// then return the file plus its top contributing persons.
func (e *Engine) File(fileID, sortKey string, limit int) (FileResult, error) {
	files, err := e.Source.Files(e.Dir)
	if err != nil {
		return FileResult{}, err
	}
	ids := make([]string, 0, len(files))
	byID := make(map[string]FileRow, len(files))
	for _, f := range files {
		ids = append(ids, f.FileID)
		byID[f.FileID] = f
	}
	resolved, err := resolveOne(fileID, ids)
	if err != nil {
		return FileResult{}, err
	}

	edges, err := e.Source.Edges(e.Dir)
	if err != nil {
		return FileResult{}, err
	}
	var matching []EdgeRow
	for _, ed := range edges {
		if ed.FileID == resolved {
			matching = append(matching, ed)
		}
	}
	key := sortKey
	if key == "" {
		key = "touches"
	}
	return FileResult{File: byID[resolved], TopPersons: sortLimitEdges(matching, key, limit)}, nil
}

// CoChange implements the "cochange" operation.
func (e *Engine) CoChange(fileID string, minJaccard float64, minCount, limit int) (CoChangeResult, error) {
	files, err := e.Source.Files(e.Dir)
	if err != nil {
		return CoChangeResult{}, err
	}
	ids := make([]string, 0, len(files))
	byID := make(map[string]FileRow, len(files))
	for _, f := range files {
		ids = append(ids, f.FileID)
		byID[f.FileID] = f
	}
	resolved, err := resolveOne(fileID, ids)
	if err != nil {
		return CoChangeResult{}, err
	}

	rows, err := e.Source.CoChange(e.Dir)
	if err != nil {
		return CoChangeResult{}, err
	}
	var neighbors []CoChangeNeighbor
	for _, r := range rows {
		var other string
		switch resolved {
		case r.FileA:
			other = r.FileB
		case r.FileB:
			other = r.FileA
		default:
			continue
		}
		if r.CochangeCount < minCount || r.Jaccard < minJaccard {
			continue
		}
		neighbors = append(neighbors, CoChangeNeighbor{FileID: other, Count: r.CochangeCount, Jaccard: r.Jaccard})
	}
	neighbors = sortNeighbors(neighbors, limit)
	return CoChangeResult{File: byID[resolved], Neighbors: neighbors}, nil
}

func sortNeighbors(n []CoChangeNeighbor, limit int) []CoChangeNeighbor {
	// insertion sort is fine: neighbor counts per file are small in practice,
	// and this keeps the tie-break explicit (jaccard desc, then id asc).
	for i := 1; i < len(n); i++ {
		j := i
		for j > 0 && less(n[j], n[j-1]) {
			n[j], n[j-1] = n[j-1], n[j]
			j--
		}
	}
	if limit > 0 && len(n) > limit {
		return n[:limit]
	}
	return n
}

func less(a, b CoChangeNeighbor) bool {
	if a.Jaccard != b.Jaccard {
		return a.Jaccard > b.Jaccard
	}
	return a.FileID < b.FileID
}

// Tag implements the "tag" operation: top persons and top files carrying
// the given sensitivity tag.
func (e *Engine) Tag(tag string, limit int) (TagResult, error) {
	files, err := e.Source.Files(e.Dir)
	if err != nil {
		return TagResult{}, err
	}
	tagged := make(map[string]bool)
	var topFiles []FileRow
	for _, f := range files {
		if hasTag(f.SensitivityTags, tag) {
			tagged[f.FileID] = true
			topFiles = append(topFiles, f)
		}
	}
	topFiles = sortLimitFiles(topFiles, "sensitivity_score", limit)

	edges, err := e.Source.Edges(e.Dir)
	if err != nil {
		return TagResult{}, err
	}
	perPerson := make(map[string]float64)
	for _, ed := range edges {
		if tagged[ed.FileID] {
			perPerson[ed.PersonID] += ed.SensitiveWeight
		}
	}

	people, err := e.Source.People(e.Dir)
	if err != nil {
		return TagResult{}, err
	}
	var topPersons []PersonRow
	for _, p := range people {
		if perPerson[p.PersonID] > 0 {
			row := p
			row.SensitiveTouches = perPerson[p.PersonID]
			topPersons = append(topPersons, row)
		}
	}
	topPersons = sortLimitPeople(topPersons, "sensitive_touches", limit)

	return TagResult{Tag: tag, TopPersons: topPersons, TopFiles: topFiles}, nil
}

// Summary implements the "summary" operation, returning the snapshot's
// summary.json verbatim. A caller wanting one section (e.g. "stats")
// slices the returned struct itself; the engine loads the whole document
// in one pass regardless.
func (e *Engine) Summary() (snapshot.Summary, error) {
	return loadSummary(e.Dir)
}

// Communities implements the "communities"/"community" operations.
// With id == "", it returns the full (untruncated-by-files) list; with
// id set, it resolves to one community or returns NotFound.
func (e *Engine) Communities(id string, includeFiles bool, fileLimit, limit int) ([]CommunityEntry, error) {
	raw, err := loadCommunities(e.Dir)
	if err != nil {
		return nil, err
	}

	if id != "" {
		for _, c := range raw {
			if strconv.Itoa(c.ID) == id {
				return []CommunityEntry{toCommunityEntry(c, true, fileLimit)}, nil
			}
		}
		return nil, ownererr.Newf(ownererr.NotFound, "no community with id %q", id)
	}

	out := make([]CommunityEntry, 0, len(raw))
	for _, c := range raw {
		out = append(out, toCommunityEntry(c, includeFiles, fileLimit))
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
