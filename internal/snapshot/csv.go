package snapshot

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ownermine/ownermine/internal/gitlog"
	"github.com/ownermine/ownermine/internal/model"
	"github.com/ownermine/ownermine/internal/ownererr"
	"github.com/ownermine/ownermine/internal/weight"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// writeCSV writes header and rows to path+".tmp" and then renames that
// file over path, so each artifact is replaced whole (§5's temp+rename).
func writeCSV(path string, header []string, rows [][]string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "creating %s", path)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return ownererr.Wrapf(err, ownererr.Config, "writing header for %s", path)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return ownererr.Wrapf(err, ownererr.Config, "writing row for %s", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return ownererr.Wrapf(err, ownererr.Config, "flushing %s", path)
	}
	if err := f.Close(); err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "closing %s", path)
	}
	return os.Rename(tmp, path)
}

// writePeopleCSV emits people.csv, one row per person, lexicographic by id
// (§4.8, §6).
func writePeopleCSV(dir string, g *model.Graph) error {
	var ids []string
	for id := range g.People {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		p := g.People[id]
		rows = append(rows, []string{
			id,
			p.Name,
			id,
			p.FirstSeen.Format(timeLayout),
			p.LastSeen.Format(timeLayout),
			strconv.Itoa(p.CommitCount),
			strconv.Itoa(p.Touches),
			weight.Money(p.SensitiveTouches),
			gitlog.FormatOffset(p.PrimaryTZ()),
			strconv.Itoa(p.PrimaryTZ()),
			formatTZHistogram(p.TZMinutes),
		})
	}

	header := []string{
		"person_id", "name", "email", "first_seen", "last_seen",
		"commit_count", "touches", "sensitive_touches", "primary_tz_offset",
		"primary_tz_minutes", "timezone_offsets",
	}
	return writeCSV(filepath.Join(dir, "people.csv"), header, rows)
}

// formatTZHistogram renders a person's TZMinutes histogram as
// "±HH:MM:count;…" sorted by minutes ascending, per §6.
func formatTZHistogram(hist map[int]int) string {
	minutes := make([]int, 0, len(hist))
	for m := range hist {
		minutes = append(minutes, m)
	}
	sort.Ints(minutes)

	parts := make([]string, 0, len(minutes))
	for _, m := range minutes {
		parts = append(parts, gitlog.FormatOffset(m)+":"+strconv.Itoa(hist[m]))
	}
	return strings.Join(parts, ";")
}

// writeFilesCSV emits files.csv, one row per file, lexicographic by path.
func writeFilesCSV(dir string, g *model.Graph) error {
	var paths []string
	for p := range g.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	rows := make([][]string, 0, len(paths))
	for _, path := range paths {
		f := g.Files[path]
		var tags []string
		for tag := range f.Tags {
			tags = append(tags, tag)
		}
		sort.Strings(tags)

		rows = append(rows, []string{
			path,
			path,
			f.FirstSeen.Format(timeLayout),
			f.LastSeen.Format(timeLayout),
			strconv.Itoa(f.CommitCount),
			strconv.Itoa(f.Touches),
			strconv.Itoa(f.BusFactor()),
			weight.Money(f.SensitivityScore()),
			strings.Join(tags, ";"),
		})
	}

	header := []string{
		"file_id", "path", "first_seen", "last_seen", "commit_count",
		"touches", "bus_factor", "sensitivity_score", "sensitivity_tags",
	}
	return writeCSV(filepath.Join(dir, "files.csv"), header, rows)
}

// writeEdgesCSV emits edges.csv, one row per TouchEdge with touches >=
// minTouches, lexicographic by (person_id, file_id) (§3 invariant 8).
func writeEdgesCSV(dir string, g *model.Graph, minTouches int) error {
	var keys []model.EdgeKey
	for k, e := range g.Edges {
		if e.Touches >= minTouches {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PersonID != keys[j].PersonID {
			return keys[i].PersonID < keys[j].PersonID
		}
		return keys[i].FilePath < keys[j].FilePath
	})

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		e := g.Edges[k]
		rows = append(rows, []string{
			e.PersonID,
			e.FilePath,
			strconv.Itoa(e.Touches),
			weight.Precise(e.RecencyWeight),
			e.FirstSeen.Format(timeLayout),
			e.LastSeen.Format(timeLayout),
			weight.Money(e.SensitiveWeight),
		})
	}

	header := []string{
		"person_id", "file_id", "touches", "recency_weight", "first_seen",
		"last_seen", "sensitive_weight",
	}
	return writeCSV(filepath.Join(dir, "edges.csv"), header, rows)
}

// writeCochangeEdgesCSV emits cochange_edges.csv: edges kept iff count >=
// minCount and jaccard >= minJaccard (§4.5.1).
func writeCochangeEdgesCSV(dir string, g *model.Graph, minCount int, minJaccard float64) (int, error) {
	var keys []model.CoChangeKey
	for k := range g.CoChange {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].FileA != keys[j].FileA {
			return keys[i].FileA < keys[j].FileA
		}
		return keys[i].FileB < keys[j].FileB
	})

	rows := make([][]string, 0, len(keys))
	kept := 0
	for _, k := range keys {
		e := g.CoChange[k]
		if e.Count < minCount {
			continue
		}
		ca := g.FileCommitCount(k.FileA)
		cb := g.FileCommitCount(k.FileB)
		denom := ca + cb - e.Count
		if denom <= 0 {
			continue
		}
		jaccard := float64(e.Count) / float64(denom)
		if jaccard < minJaccard {
			continue
		}
		rows = append(rows, []string{
			k.FileA,
			k.FileB,
			strconv.Itoa(e.Count),
			weight.Precise(jaccard),
		})
		kept++
	}

	header := []string{"file_a", "file_b", "cochange_count", "jaccard"}
	return kept, writeCSV(filepath.Join(dir, "cochange_edges.csv"), header, rows)
}
