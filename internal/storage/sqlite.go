package storage

import (
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/ownermine/ownermine/internal/ownererr"
	"github.com/ownermine/ownermine/internal/query"
)

// Index is a SQLite-backed query.RecordSource (C13): Open loads
// people.csv/files.csv/edges.csv/cochange_edges.csv into a local
// database, and the record methods read the full tables back, so the
// query engine filters, sorts and limits exactly as it does over the
// plain CSV source (§4.9A). The database is rebuilt from the CSVs on
// every Open; an existing database file is never reused.
type Index struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// Open creates or replaces the SQLite database at dbPath and loads it
// from the snapshot directory's CSVs via csvSource, so the index always
// starts from the same row set the unaccelerated engine would see.
func Open(dbPath, snapshotDir string, logger *logrus.Logger) (*Index, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, ownererr.Wrapf(err, ownererr.Config, "create index directory")
	}
	// Rebuilt fresh every time: the index is a cache of the CSVs, not a
	// second source of truth, so a stale file is simply removed.
	os.Remove(dbPath)

	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, ownererr.Wrapf(err, ownererr.Config, "open sqlite index")
	}
	db.Exec("PRAGMA journal_mode = WAL")

	idx := &Index{db: db, logger: logger}
	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := idx.load(snapshotDir); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) initSchema() error {
	schema := `
	CREATE TABLE people (
		person_id TEXT PRIMARY KEY,
		name TEXT,
		email TEXT,
		first_seen DATETIME,
		last_seen DATETIME,
		commit_count INTEGER,
		touches INTEGER,
		sensitive_touches REAL,
		primary_tz_offset TEXT,
		primary_tz_minutes INTEGER,
		timezone_offsets TEXT
	);

	CREATE TABLE files (
		file_id TEXT PRIMARY KEY,
		path TEXT,
		first_seen DATETIME,
		last_seen DATETIME,
		commit_count INTEGER,
		touches INTEGER,
		bus_factor INTEGER,
		sensitivity_score REAL,
		sensitivity_tags TEXT
	);

	CREATE TABLE edges (
		person_id TEXT,
		file_id TEXT,
		touches INTEGER,
		recency_weight REAL,
		first_seen DATETIME,
		last_seen DATETIME,
		sensitive_weight REAL,
		PRIMARY KEY (person_id, file_id)
	);

	CREATE TABLE cochange_edges (
		file_a TEXT,
		file_b TEXT,
		cochange_count INTEGER,
		jaccard REAL,
		PRIMARY KEY (file_a, file_b)
	);

	CREATE INDEX idx_edges_person ON edges(person_id);
	CREATE INDEX idx_edges_file ON edges(file_id);
	CREATE INDEX idx_cochange_a ON cochange_edges(file_a);
	CREATE INDEX idx_cochange_b ON cochange_edges(file_b);
	`
	_, err := idx.db.Exec(schema)
	if err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "create index schema")
	}
	return nil
}

// load reads the snapshot's CSVs through the plain CSV source and bulk
// inserts them, so the index's row set is defined by the exact same
// parser the unaccelerated engine uses.
func (idx *Index) load(snapshotDir string) error {
	src := query.NewCSVSource()

	people, err := src.People(snapshotDir)
	if err != nil {
		return err
	}
	tx := idx.db.MustBegin()
	for _, p := range people {
		tx.MustExec(`INSERT INTO people VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			p.PersonID, p.Name, p.Email, formatIndexTime(p.FirstSeen), formatIndexTime(p.LastSeen),
			p.CommitCount, p.Touches, p.SensitiveTouches,
			p.PrimaryTZOffset, p.PrimaryTZMinutes, p.TimezoneOffsets)
	}
	if err := tx.Commit(); err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "load people into index")
	}

	files, err := src.Files(snapshotDir)
	if err != nil {
		return err
	}
	tx = idx.db.MustBegin()
	for _, f := range files {
		tx.MustExec(`INSERT INTO files VALUES (?,?,?,?,?,?,?,?,?)`,
			f.FileID, f.Path, formatIndexTime(f.FirstSeen), formatIndexTime(f.LastSeen), f.CommitCount,
			f.Touches, f.BusFactor, f.SensitivityScore, joinTags(f.SensitivityTags))
	}
	if err := tx.Commit(); err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "load files into index")
	}

	edges, err := src.Edges(snapshotDir)
	if err != nil {
		return err
	}
	tx = idx.db.MustBegin()
	for _, e := range edges {
		tx.MustExec(`INSERT INTO edges VALUES (?,?,?,?,?,?,?)`,
			e.PersonID, e.FileID, e.Touches, e.RecencyWeight,
			formatIndexTime(e.FirstSeen), formatIndexTime(e.LastSeen), e.SensitiveWeight)
	}
	if err := tx.Commit(); err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "load edges into index")
	}

	cochange, err := src.CoChange(snapshotDir)
	if err != nil {
		return err
	}
	tx = idx.db.MustBegin()
	for _, c := range cochange {
		tx.MustExec(`INSERT INTO cochange_edges VALUES (?,?,?,?)`,
			c.FileA, c.FileB, c.CochangeCount, c.Jaccard)
	}
	if err := tx.Commit(); err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "load cochange edges into index")
	}

	idx.logger.WithFields(logrus.Fields{
		"people": len(people), "files": len(files),
		"edges": len(edges), "cochange_edges": len(cochange),
	}).Debug("query index built")
	return nil
}

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ";"
		}
		out += t
	}
	return out
}

// Close releases the underlying database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// People implements query.RecordSource by SELECT * FROM people; row
// shape and values are identical to the CSV source (dir is ignored —
// the index was already built from one snapshot directory).
func (idx *Index) People(string) ([]query.PersonRow, error) {
	var rows []struct {
		PersonID         string  `db:"person_id"`
		Name             string  `db:"name"`
		Email            string  `db:"email"`
		FirstSeen        string  `db:"first_seen"`
		LastSeen         string  `db:"last_seen"`
		CommitCount      int     `db:"commit_count"`
		Touches          int     `db:"touches"`
		SensitiveTouches float64 `db:"sensitive_touches"`
		PrimaryTZOffset  string  `db:"primary_tz_offset"`
		PrimaryTZMinutes int     `db:"primary_tz_minutes"`
		TimezoneOffsets  string  `db:"timezone_offsets"`
	}
	if err := idx.db.Select(&rows, `SELECT * FROM people`); err != nil {
		return nil, ownererr.Wrapf(err, ownererr.Config, "query people index")
	}
	out := make([]query.PersonRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, query.PersonRow{
			PersonID: r.PersonID, Name: r.Name, Email: r.Email,
			FirstSeen: parseIndexTime(r.FirstSeen), LastSeen: parseIndexTime(r.LastSeen),
			CommitCount: r.CommitCount, Touches: r.Touches,
			SensitiveTouches: r.SensitiveTouches, PrimaryTZOffset: r.PrimaryTZOffset,
			PrimaryTZMinutes: r.PrimaryTZMinutes, TimezoneOffsets: r.TimezoneOffsets,
		})
	}
	return out, nil
}

// Files implements query.RecordSource.
func (idx *Index) Files(string) ([]query.FileRow, error) {
	var rows []struct {
		FileID           string  `db:"file_id"`
		Path             string  `db:"path"`
		FirstSeen        string  `db:"first_seen"`
		LastSeen         string  `db:"last_seen"`
		CommitCount      int     `db:"commit_count"`
		Touches          int     `db:"touches"`
		BusFactor        int     `db:"bus_factor"`
		SensitivityScore float64 `db:"sensitivity_score"`
		SensitivityTags  string  `db:"sensitivity_tags"`
	}
	if err := idx.db.Select(&rows, `SELECT * FROM files`); err != nil {
		return nil, ownererr.Wrapf(err, ownererr.Config, "query files index")
	}
	out := make([]query.FileRow, 0, len(rows))
	for _, r := range rows {
		var tags []string
		if r.SensitivityTags != "" {
			tags = splitTags(r.SensitivityTags)
		}
		out = append(out, query.FileRow{
			FileID: r.FileID, Path: r.Path,
			FirstSeen: parseIndexTime(r.FirstSeen), LastSeen: parseIndexTime(r.LastSeen),
			CommitCount: r.CommitCount, Touches: r.Touches, BusFactor: r.BusFactor,
			SensitivityScore: r.SensitivityScore, SensitivityTags: tags,
		})
	}
	return out, nil
}

func splitTags(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ';' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// Edges implements query.RecordSource.
func (idx *Index) Edges(string) ([]query.EdgeRow, error) {
	var rows []struct {
		PersonID        string  `db:"person_id"`
		FileID          string  `db:"file_id"`
		Touches         int     `db:"touches"`
		RecencyWeight   float64 `db:"recency_weight"`
		FirstSeen       string  `db:"first_seen"`
		LastSeen        string  `db:"last_seen"`
		SensitiveWeight float64 `db:"sensitive_weight"`
	}
	if err := idx.db.Select(&rows, `SELECT * FROM edges`); err != nil {
		return nil, ownererr.Wrapf(err, ownererr.Config, "query edges index")
	}
	out := make([]query.EdgeRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, query.EdgeRow{
			PersonID: r.PersonID, FileID: r.FileID, Touches: r.Touches,
			RecencyWeight: r.RecencyWeight, FirstSeen: parseIndexTime(r.FirstSeen),
			LastSeen: parseIndexTime(r.LastSeen), SensitiveWeight: r.SensitiveWeight,
		})
	}
	return out, nil
}

// CoChange implements query.RecordSource.
func (idx *Index) CoChange(string) ([]query.CoChangeRow, error) {
	var rows []query.CoChangeRow
	if err := idx.db.Select(&rows, `SELECT file_a, file_b, cochange_count, jaccard FROM cochange_edges`); err != nil {
		return nil, ownererr.Wrapf(err, ownererr.Config, "query cochange index")
	}
	return rows, nil
}

func formatIndexTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseIndexTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
