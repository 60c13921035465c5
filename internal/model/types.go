// Package model holds the engine's in-memory data model (§3: Person,
// File, TouchEdge, CoChangeEdge) and the graph builder (C5) that
// populates it from a commit stream.
package model

import "time"

// Person is identified by the chosen identity's email, falling back to
// name when email is empty.
type Person struct {
	ID               string
	Name             string
	FirstSeen        time.Time
	LastSeen         time.Time
	CommitCount      int
	Touches          int
	SensitiveTouches float64
	// TZMinutes maps a UTC offset in minutes to the number of commits
	// observed at that offset.
	TZMinutes map[int]int
}

// PrimaryTZ returns the mode of TZMinutes, ties broken by the smaller
// offset (§9 open question b: "(count desc, minutes asc)").
func (p *Person) PrimaryTZ() int {
	return primaryTZ(p.TZMinutes)
}

// File is identified by its repository-relative path.
type File struct {
	Path        string
	FirstSeen   time.Time
	LastSeen    time.Time
	CommitCount int
	Touches     int
	Authors     map[string]struct{}
	// Tags maps sensitivity tag to accumulated weight, recomputed (not
	// accumulated across commits) on every touch since classification
	// is path-only and deterministic (§9 open question a).
	Tags map[string]float64
}

// BusFactor is the number of distinct contributors to the file.
func (f *File) BusFactor() int {
	return len(f.Authors)
}

// SensitivityScore is the sum of all tag weights on the file.
func (f *File) SensitivityScore() float64 {
	total := 0.0
	for _, w := range f.Tags {
		total += w
	}
	return total
}

// TouchEdge aggregates one (person, file) pair's interactions.
type TouchEdge struct {
	PersonID        string
	FilePath        string
	Touches         int
	FirstSeen       time.Time
	LastSeen        time.Time
	RecencyWeight   float64
	SensitiveWeight float64
}

// EdgeKey identifies a TouchEdge by its composite key.
type EdgeKey struct {
	PersonID string
	FilePath string
}

// CoChangeEdge aggregates how often two files change together, with
// the canonical ordering FileA < FileB (§3).
type CoChangeEdge struct {
	FileA string
	FileB string
	Count int
}

// CoChangeKey identifies a CoChangeEdge by its canonical ordered pair.
type CoChangeKey struct {
	FileA string
	FileB string
}

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
