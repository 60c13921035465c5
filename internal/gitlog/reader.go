// Package gitlog implements the commit stream reader (C1): it shells out
// to git log with a fixed header format and hands the caller one parsed
// Commit at a time, so the graph builder never has to hold the whole
// history in memory.
package gitlog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ownermine/ownermine/internal/ownererr"
)

// logFormat begins every record with a "---" sentinel, matching the
// contract in §4.1/§6: exactly 8 header lines follow the sentinel,
// then zero or more file-path lines until the next sentinel.
const logFormat = `--format=---%n%H%n%P%n%an%n%ae%n%ad%n%cn%n%ce%n%cd`

// Options configures one invocation of the reader.
type Options struct {
	RepoPath      string
	Since         string
	Until         string
	IncludeMerges bool
}

// Reader wraps a repository path and streams its commit log.
type Reader struct {
	opts Options
}

// New builds a Reader for the given options.
func New(opts Options) *Reader {
	return &Reader{opts: opts}
}

// VisitFunc is called once per accepted commit, in the order git log
// produced it. Returning an error aborts the stream.
type VisitFunc func(Commit) error

// Each streams the repository's commit log, invoking visit once per
// parsed commit. It never buffers more than one commit's worth of file
// paths, satisfying the single-threaded streaming resource model.
func (r *Reader) Each(ctx context.Context, visit VisitFunc) error {
	args := []string{"log", "--name-only", "--no-renames", "--date=iso-strict", logFormat}
	if !r.opts.IncludeMerges {
		args = append(args, "--no-merges")
	}
	if r.opts.Since != "" {
		args = append(args, "--since="+r.opts.Since)
	}
	if r.opts.Until != "" {
		args = append(args, "--until="+r.opts.Until)
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	if r.opts.RepoPath != "" {
		cmd.Dir = r.opts.RepoPath
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return ownererr.Wrap(err, ownererr.Source, "starting git log")
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return ownererr.Wrap(err, ownererr.Source, "launching git log")
	}

	scanErr := scanRecords(stdout, visit)

	waitErr := cmd.Wait()
	if waitErr != nil {
		return ownererr.Wrapf(waitErr, ownererr.Source, "git log failed: %s", strings.TrimSpace(stderr.String()))
	}
	if scanErr != nil {
		return scanErr
	}
	return nil
}

func scanRecords(stdout io.Reader, visit VisitFunc) error {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var header []string
	var files []string
	inRecord := false

	flush := func() error {
		if !inRecord {
			return nil
		}
		if len(header) != 8 {
			return ownererr.Newf(ownererr.Parse, "truncated commit header (expected 8 lines, got %d)", len(header))
		}
		c, err := parseCommit(header, files)
		if err != nil {
			return err
		}
		return visit(c)
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "---" {
			if err := flush(); err != nil {
				return err
			}
			header = header[:0]
			files = files[:0]
			inRecord = true
			continue
		}
		if !inRecord {
			continue
		}
		if len(header) < 8 {
			header = append(header, line)
			continue
		}
		if line != "" {
			files = append(files, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return ownererr.Wrap(err, ownererr.Source, "reading git log output")
	}
	return flush()
}

func parseCommit(header, files []string) (Commit, error) {
	hash := header[0]
	var parents []string
	if strings.TrimSpace(header[1]) != "" {
		parents = strings.Fields(header[1])
	}

	authorDate, authorOffset, err := parseDate(header[4])
	if err != nil {
		return Commit{}, ownererr.Wrapf(err, ownererr.Parse, "parsing author date for %s", hash)
	}
	committerDate, committerOffset, err := parseDate(header[7])
	if err != nil {
		return Commit{}, ownererr.Wrapf(err, ownererr.Parse, "parsing committer date for %s", hash)
	}

	deduped := dedupeSorted(files)

	return Commit{
		Hash:               hash,
		Parents:            parents,
		IsMerge:            len(parents) > 1,
		AuthorName:         header[2],
		AuthorEmail:        header[3],
		AuthorDate:         authorDate,
		AuthorTZMinutes:    authorOffset,
		CommitterName:      header[5],
		CommitterEmail:     header[6],
		CommitterDate:      committerDate,
		CommitterTZMinutes: committerOffset,
		Files:              deduped,
	}, nil
}

// parseDate parses an ISO-8601 timestamp with explicit offset (git's
// --date=iso-strict form). A timestamp with no zone is treated as UTC,
// per §4.1.
func parseDate(raw string) (time.Time, int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, 0, fmt.Errorf("empty date")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Fall back to a bare date/time with no offset: treat as UTC.
		t, err = time.Parse("2006-01-02T15:04:05", raw)
		if err != nil {
			return time.Time{}, 0, err
		}
		t = t.UTC()
	}
	_, offsetSeconds := t.Zone()
	return t, offsetSeconds / 60, nil
}

func dedupeSorted(files []string) []string {
	seen := make(map[string]struct{}, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// FormatOffset renders minutes-east-of-UTC as "±HH:MM", matching the
// people.csv primary_tz_offset column contract.
func FormatOffset(minutes int) string {
	sign := "+"
	m := minutes
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%02d:%02d", sign, m/60, m%60)
}

// ParseOffsetToken parses an "N" string of raw offset minutes back to an
// int. Kept small and dependency-free since this is purely a numeric
// coercion helper.
func ParseOffsetToken(s string) (int, error) {
	return strconv.Atoi(s)
}
