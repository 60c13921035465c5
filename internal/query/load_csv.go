package query

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ownermine/ownermine/internal/ownererr"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// csvSource is the default RecordSource: it parses the canonical CSVs on
// every call, per §9's guarantee that the query engine never reconstructs
// the model and never requires an index to function.
type csvSource struct{}

// NewCSVSource returns the RecordSource backed directly by the snapshot's
// CSV artifacts.
func NewCSVSource() RecordSource { return csvSource{} }

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ownererr.Wrapf(err, ownererr.MissingArtifact, "snapshot artifact %s missing", filepath.Base(path))
		}
		return nil, ownererr.Wrapf(err, ownererr.Config, "opening %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, ownererr.Wrapf(err, ownererr.Config, "parsing %s", path)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[1:], nil // drop header
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func (csvSource) People(dir string) ([]PersonRow, error) {
	records, err := readCSV(filepath.Join(dir, "people.csv"))
	if err != nil {
		return nil, err
	}
	out := make([]PersonRow, 0, len(records))
	for _, rec := range records {
		if len(rec) < 11 {
			continue
		}
		out = append(out, PersonRow{
			PersonID:         rec[0],
			Name:             rec[1],
			Email:            rec[2],
			FirstSeen:        parseTime(rec[3]),
			LastSeen:         parseTime(rec[4]),
			CommitCount:      parseInt(rec[5]),
			Touches:          parseInt(rec[6]),
			SensitiveTouches: parseFloat(rec[7]),
			PrimaryTZOffset:  rec[8],
			PrimaryTZMinutes: parseInt(rec[9]),
			TimezoneOffsets:  rec[10],
		})
	}
	return out, nil
}

func (csvSource) Files(dir string) ([]FileRow, error) {
	records, err := readCSV(filepath.Join(dir, "files.csv"))
	if err != nil {
		return nil, err
	}
	out := make([]FileRow, 0, len(records))
	for _, rec := range records {
		if len(rec) < 9 {
			continue
		}
		var tags []string
		if rec[8] != "" {
			tags = strings.Split(rec[8], ";")
		}
		out = append(out, FileRow{
			FileID:           rec[0],
			Path:             rec[1],
			FirstSeen:        parseTime(rec[2]),
			LastSeen:         parseTime(rec[3]),
			CommitCount:      parseInt(rec[4]),
			Touches:          parseInt(rec[5]),
			BusFactor:        parseInt(rec[6]),
			SensitivityScore: parseFloat(rec[7]),
			SensitivityTags:  tags,
		})
	}
	return out, nil
}

func (csvSource) Edges(dir string) ([]EdgeRow, error) {
	records, err := readCSV(filepath.Join(dir, "edges.csv"))
	if err != nil {
		return nil, err
	}
	out := make([]EdgeRow, 0, len(records))
	for _, rec := range records {
		if len(rec) < 7 {
			continue
		}
		out = append(out, EdgeRow{
			PersonID:        rec[0],
			FileID:          rec[1],
			Touches:         parseInt(rec[2]),
			RecencyWeight:   parseFloat(rec[3]),
			FirstSeen:       parseTime(rec[4]),
			LastSeen:        parseTime(rec[5]),
			SensitiveWeight: parseFloat(rec[6]),
		})
	}
	return out, nil
}

func (csvSource) CoChange(dir string) ([]CoChangeRow, error) {
	path := filepath.Join(dir, "cochange_edges.csv")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	out := make([]CoChangeRow, 0, len(records))
	for _, rec := range records {
		if len(rec) < 4 {
			continue
		}
		out = append(out, CoChangeRow{
			FileA:         rec[0],
			FileB:         rec[1],
			CochangeCount: parseInt(rec[2]),
			Jaccard:       parseFloat(rec[3]),
		})
	}
	return out, nil
}
