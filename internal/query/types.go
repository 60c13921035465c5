// Package query implements the bounded query engine (C9): a read-only
// interface over a snapshot directory that loads only the artifacts a
// given operation needs, filters in a single pass, then sorts and
// truncates to the caller's limit (§4.9).
package query

import "time"

// PersonRow mirrors one people.csv row.
type PersonRow struct {
	PersonID         string
	Name             string
	Email            string
	FirstSeen        time.Time
	LastSeen         time.Time
	CommitCount      int
	Touches          int
	SensitiveTouches float64
	PrimaryTZOffset  string
	PrimaryTZMinutes int
	TimezoneOffsets  string
}

// FileRow mirrors one files.csv row.
type FileRow struct {
	FileID           string
	Path             string
	FirstSeen        time.Time
	LastSeen         time.Time
	CommitCount      int
	Touches          int
	BusFactor        int
	SensitivityScore float64
	SensitivityTags  []string
}

// EdgeRow mirrors one edges.csv row.
type EdgeRow struct {
	PersonID        string
	FileID          string
	Touches         int
	RecencyWeight   float64
	FirstSeen       time.Time
	LastSeen        time.Time
	SensitiveWeight float64
}

// CoChangeRow mirrors one cochange_edges.csv row. The db tags let the
// SQLite index (C13) scan query results straight into this type.
type CoChangeRow struct {
	FileA         string  `db:"file_a"`
	FileB         string  `db:"file_b"`
	CochangeCount int     `db:"cochange_count"`
	Jaccard       float64 `db:"jaccard"`
}

// RecordSource abstracts where rows come from: the canonical CSVs, or the
// optional SQLite index (C13). Semantics (row set, ordering within a
// source) are identical either way; only I/O cost differs (§4.9A).
type RecordSource interface {
	People(dir string) ([]PersonRow, error)
	Files(dir string) ([]FileRow, error)
	Edges(dir string) ([]EdgeRow, error)
	CoChange(dir string) ([]CoChangeRow, error)
}

// PeopleFilter configures the "people" query.
type PeopleFilter struct {
	EmailSubstring string
	MinTouches     int
	MinSensitive   float64
	SortKey        string
	Limit          int
}

// FilesFilter configures the "files" query.
type FilesFilter struct {
	PathSubstring string
	Tag           string
	MaxBusFactor  int // 0 means unset
	MinSensitivity float64
	SortKey       string
	Limit         int
}

// PersonResult is the "person" query's output: the resolved person plus
// their top touched files.
type PersonResult struct {
	Person   PersonRow
	TopFiles []EdgeRow
}

// FileResult is the "file" query's output: the resolved file plus its
// top contributing persons.
type FileResult struct {
	File       FileRow
	TopPersons []EdgeRow
}

// CoChangeNeighbor is one neighbor in a "cochange" query result.
type CoChangeNeighbor struct {
	FileID  string
	Count   int
	Jaccard float64
}

// CoChangeResult is the "cochange" query's output.
type CoChangeResult struct {
	File      FileRow
	Neighbors []CoChangeNeighbor
}

// TagResult is the "tag" query's output.
type TagResult struct {
	Tag        string
	TopPersons []PersonRow
	TopFiles   []FileRow
}

// CommunityEntry is one entry of the "communities"/"community" query
// output.
type CommunityEntry struct {
	ID          int
	Size        int
	Files       []string
	Truncated   bool
	Maintainers []CommunityOwner
	BusFactor   int
	OwnerCount  int
	Totals      CommunityTotals
}

// CommunityOwner mirrors communities.json's per-maintainer rollup.
type CommunityOwner struct {
	PersonID       string
	Name           string
	Touches        int
	TouchShare     float64
	RecencyShare   float64
	SensitiveShare float64
	PrimaryTZ      string
}

// CommunityTotals mirrors communities.json's "totals" object.
type CommunityTotals struct {
	Touches         int
	RecencyWeight   float64
	SensitiveWeight float64
}
