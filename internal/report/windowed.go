// Package report implements the windowed maintainer report (C10): given
// a file or community id, a date range, and bucketing parameters, it
// re-derives per-period maintainer rankings for that community's files
// directly from the commit stream, independent of the frozen graph
// (§4.10).
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/ownermine/ownermine/internal/gitlog"
	"github.com/ownermine/ownermine/internal/identity"
	"github.com/ownermine/ownermine/internal/weight"
)

// BucketMode selects the calendar grid a Period grid is built on.
type BucketMode string

const (
	BucketMonth   BucketMode = "month"
	BucketQuarter BucketMode = "quarter"
)

// TouchMode selects how one commit contributes to a period's raw touch
// count (§4.10: "touches per commit contribution").
type TouchMode string

const (
	TouchCommit TouchMode = "commit"
	TouchFile   TouchMode = "file"
)

// WeightMode selects how one commit's raw touches are weighted before
// summing into a period's contribution.
type WeightMode string

const (
	WeightTouches WeightMode = "touches"
	WeightRecency WeightMode = "recency"
)

// SourceOptions mirrors the identity/date/merge knobs C5 applies to a
// commit stream. A fresh C1 invocation (when the commit log was not
// persisted) must filter commits the same way the original mining pass
// did, or the report's person ids would not line up with the snapshot's.
type SourceOptions struct {
	Identity      string // "author" or "committer"
	DateField     string // "author" or "committer"
	IncludeMerges bool
	IdFilter      *identity.Filter
}

// Options configures one windowed maintainer report.
type Options struct {
	Bucket     BucketMode
	WindowDays int // 0 means disjoint calendar buckets
	TouchMode  TouchMode
	WeightMode WeightMode

	HalfLifeDays float64
	MinTouches   int
	MinShare     float64
	Top          int

	// Since/Until bound the period grid. Zero values fall back to the
	// observed min/max date among commits touching the community.
	Since time.Time
	Until time.Time
}

// Row is one ranked maintainer within a Period.
type Row struct {
	Rank         int
	PersonID     string
	Name         string
	Email        string
	PrimaryTZ    string
	Contribution float64
	Share        float64
}

// Period is one report bucket: a calendar month/quarter, or — when
// Options.WindowDays > 0 — a rolling window ending at that bucket's
// boundary rather than the disjoint calendar span.
type Period struct {
	Label string
	Start time.Time
	End   time.Time
	Rows  []Row
}

type personAgg struct {
	name  string
	email string
	tz    map[int]int
}

type commitHit struct {
	personID    string
	date        time.Time
	inCommunity int
}

// Generate re-aggregates commits into per-period maintainer rankings for
// the given community's file set (§4.10). commits must already be in
// the order C1 would yield them; Generate applies the same merge and
// identity filtering C5 applies so person ids match the snapshot's.
func Generate(commits []gitlog.Commit, src SourceOptions, community map[string]struct{}, opts Options) []Period {
	people := make(map[string]*personAgg)
	var hits []commitHit

	for _, c := range commits {
		if c.IsMerge && !src.IncludeMerges {
			continue
		}
		name := c.IdentityName(src.Identity)
		email := c.IdentityEmail(src.Identity)
		if src.IdFilter != nil && src.IdFilter.Rejects(name, email) {
			continue
		}

		inCommunity := 0
		for _, p := range c.Files {
			if _, ok := community[p]; ok {
				inCommunity++
			}
		}
		if inCommunity == 0 {
			continue
		}

		personID := email
		if personID == "" {
			personID = name
		}
		date := c.Date(src.DateField)
		tz := c.TZMinutes(src.DateField)

		agg, ok := people[personID]
		if !ok {
			agg = &personAgg{name: name, email: email, tz: make(map[int]int)}
			people[personID] = agg
		}
		agg.tz[tz]++

		hits = append(hits, commitHit{personID: personID, date: date, inCommunity: inCommunity})
	}

	if len(hits) == 0 {
		return nil
	}

	since, until := opts.Since, opts.Until
	if since.IsZero() || until.IsZero() {
		minDate, maxDate := hits[0].date, hits[0].date
		for _, h := range hits {
			if h.date.Before(minDate) {
				minDate = h.date
			}
			if h.date.After(maxDate) {
				maxDate = h.date
			}
		}
		if since.IsZero() {
			since = minDate
		}
		if until.IsZero() {
			until = maxDate
		}
	}

	periods := make([]Period, 0)
	for _, b := range periodBounds(since, until, opts.Bucket) {
		windowStart := b.Start
		if opts.WindowDays > 0 {
			windowStart = b.End.AddDate(0, 0, -opts.WindowDays)
		}

		touches := make(map[string]int)
		contribution := make(map[string]float64)
		for _, h := range hits {
			if h.date.Before(windowStart) || !h.date.Before(b.End) {
				continue
			}
			t := 1
			if opts.TouchMode == TouchFile {
				t = h.inCommunity
			}
			w := 1.0
			if opts.WeightMode == WeightRecency {
				w = weight.Recency(float64(b.End.Unix()), float64(h.date.Unix()), opts.HalfLifeDays)
			}
			touches[h.personID] += t
			contribution[h.personID] += float64(t) * w
		}

		periods = append(periods, buildPeriod(b, touches, contribution, people, opts))
	}

	return periods
}

type bounds struct {
	Label string
	Start time.Time
	End   time.Time
}

// periodBounds builds the disjoint calendar grid spanning [since,until]
// inclusively (§4.10). The rolling-window variant reuses the same grid
// of boundaries; only the window each boundary aggregates over differs.
func periodBounds(since, until time.Time, mode BucketMode) []bounds {
	since = since.UTC()
	until = until.UTC()

	var out []bounds
	cur := bucketStart(since, mode)
	for !cur.After(until) {
		next := nextBucket(cur, mode)
		out = append(out, bounds{Label: bucketLabel(cur, mode), Start: cur, End: next})
		cur = next
	}
	return out
}

func bucketStart(t time.Time, mode BucketMode) time.Time {
	if mode == BucketQuarter {
		q := (int(t.Month()) - 1) / 3
		return time.Date(t.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func nextBucket(t time.Time, mode BucketMode) time.Time {
	if mode == BucketQuarter {
		return t.AddDate(0, 3, 0)
	}
	return t.AddDate(0, 1, 0)
}

func bucketLabel(t time.Time, mode BucketMode) string {
	if mode == BucketQuarter {
		q := (int(t.Month())-1)/3 + 1
		return fmt.Sprintf("%04d-Q%d", t.Year(), q)
	}
	return t.Format("2006-01")
}

type candidate struct {
	personID string
	touches  int
	contrib  float64
}

// buildPeriod filters, ranks, and truncates one period's aggregates
// (§4.10: "sort descending by contribution; apply min_touches and
// min_share filters; emit top `top` rows").
func buildPeriod(b bounds, touches map[string]int, contribution map[string]float64, people map[string]*personAgg, opts Options) Period {
	total := 0.0
	for _, c := range contribution {
		total += c
	}

	var cands []candidate
	for personID, contrib := range contribution {
		t := touches[personID]
		if t < opts.MinTouches {
			continue
		}
		share := 0.0
		if total > 0 {
			share = contrib / total
		}
		if share < opts.MinShare {
			continue
		}
		cands = append(cands, candidate{personID: personID, touches: t, contrib: contrib})
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].contrib != cands[j].contrib {
			return cands[i].contrib > cands[j].contrib
		}
		return cands[i].personID < cands[j].personID
	})
	if opts.Top > 0 && len(cands) > opts.Top {
		cands = cands[:opts.Top]
	}

	rows := make([]Row, 0, len(cands))
	for i, c := range cands {
		agg := people[c.personID]
		name, email, tz := c.personID, "", 0
		if agg != nil {
			name, email, tz = agg.name, agg.email, primaryTZ(agg.tz)
		}
		share := 0.0
		if total > 0 {
			share = weight.RoundPrecise(c.contrib / total)
		}
		rows = append(rows, Row{
			Rank:         i + 1,
			PersonID:     c.personID,
			Name:         name,
			Email:        email,
			PrimaryTZ:    gitlog.FormatOffset(tz),
			Contribution: weight.RoundPrecise(c.contrib),
			Share:        share,
		})
	}

	return Period{Label: b.Label, Start: b.Start, End: b.End, Rows: rows}
}

// primaryTZ mirrors model.Person.PrimaryTZ's tie-break (§9 open question
// b: "(count desc, minutes asc)"), re-derived here since the windowed
// report keeps its own per-person timezone histogram rather than reading
// the frozen graph's.
func primaryTZ(hist map[int]int) int {
	bestMinutes := 0
	bestCount := -1
	first := true
	for minutes, count := range hist {
		if first || count > bestCount || (count == bestCount && minutes < bestMinutes) {
			bestMinutes = minutes
			bestCount = count
			first = false
		}
	}
	return bestMinutes
}
