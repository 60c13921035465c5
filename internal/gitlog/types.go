package gitlog

import "time"

// Commit is the transient record §3 describes: one parsed entry from the
// commit log, with its deduplicated, sorted list of touched paths.
type Commit struct {
	Hash    string
	Parents []string
	IsMerge bool

	AuthorName      string
	AuthorEmail     string
	AuthorDate      time.Time
	AuthorTZMinutes int

	CommitterName      string
	CommitterEmail     string
	CommitterDate      time.Time
	CommitterTZMinutes int

	Files []string
}

// IdentityName returns the name field for the configured identity source.
func (c Commit) IdentityName(identity string) string {
	if identity == "committer" {
		return c.CommitterName
	}
	return c.AuthorName
}

// IdentityEmail returns the email field for the configured identity source.
func (c Commit) IdentityEmail(identity string) string {
	if identity == "committer" {
		return c.CommitterEmail
	}
	return c.AuthorEmail
}

// Date returns the timestamp for the configured date field ("author" or
// "committer").
func (c Commit) Date(dateField string) time.Time {
	if dateField == "committer" {
		return c.CommitterDate
	}
	return c.AuthorDate
}

// TZMinutes returns the zone offset (minutes east of UTC) for the
// configured date field.
func (c Commit) TZMinutes(dateField string) int {
	if dateField == "committer" {
		return c.CommitterTZMinutes
	}
	return c.AuthorTZMinutes
}
