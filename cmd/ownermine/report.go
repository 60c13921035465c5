package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ownermine/ownermine/internal/classify"
	"github.com/ownermine/ownermine/internal/gitlog"
	"github.com/ownermine/ownermine/internal/identity"
	"github.com/ownermine/ownermine/internal/ownererr"
	"github.com/ownermine/ownermine/internal/report"
)

var (
	reportSnapshotDir string
	reportCommunityID string
	reportBucket      string
	reportWindowDays  int
	reportTouchMode   string
	reportWeightMode  string
	reportHalfLife    float64
	reportMinTouches  int
	reportMinShare    float64
	reportTop         int
	reportSince       string
	reportUntil       string
	reportRepoPath    string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build a windowed maintainer report for one community (C10)",
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportSnapshotDir, "snapshot", "./ownership-snapshot", "snapshot directory to resolve the community against")
	f.StringVar(&reportCommunityID, "community", "", "community id, or a file path/substring to resolve to its community")
	f.StringVar(&reportBucket, "bucket", "month", "bucket mode: month or quarter")
	f.IntVar(&reportWindowDays, "window-days", 0, "rolling window length in days (0 = disjoint calendar buckets)")
	f.StringVar(&reportTouchMode, "touch-mode", "commit", "touch contribution mode: commit or file")
	f.StringVar(&reportWeightMode, "weight-mode", "touches", "weighting mode: touches or recency")
	f.Float64Var(&reportHalfLife, "half-life-days", 180, "recency half-life in days (weight-mode=recency)")
	f.IntVar(&reportMinTouches, "min-touches", 0, "minimum touches for a maintainer row")
	f.Float64Var(&reportMinShare, "min-share", 0, "minimum share for a maintainer row")
	f.IntVar(&reportTop, "top", 10, "max rows per period")
	f.StringVar(&reportSince, "since", "", "override the commit window lower bound (RFC3339)")
	f.StringVar(&reportUntil, "until", "", "override the commit window upper bound (RFC3339)")
	f.StringVar(&reportRepoPath, "repo", "", "repository path, used when commits.jsonl was not persisted")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportCommunityID == "" {
		return ownererr.New(ownererr.Config, "--community is required")
	}

	_, files, err := report.CommunityFiles(reportSnapshotDir, reportCommunityID)
	if err != nil {
		return err
	}
	community := make(map[string]struct{}, len(files))
	for _, f := range files {
		community[f] = struct{}{}
	}

	commits, err := loadCommits(reportRepoPath, reportSnapshotDir)
	if err != nil {
		return err
	}

	bucket := report.BucketMonth
	if reportBucket == "quarter" {
		bucket = report.BucketQuarter
	}
	touchMode := report.TouchCommit
	if reportTouchMode == "file" {
		touchMode = report.TouchFile
	}
	weightMode := report.WeightTouches
	if reportWeightMode == "recency" {
		weightMode = report.WeightRecency
	}

	var since, until time.Time
	if reportSince != "" {
		if since, err = time.Parse(time.RFC3339, reportSince); err != nil {
			return ownererr.Wrapf(err, ownererr.Config, "parsing --since %q", reportSince)
		}
	}
	if reportUntil != "" {
		if until, err = time.Parse(time.RFC3339, reportUntil); err != nil {
			return ownererr.Wrapf(err, ownererr.Config, "parsing --until %q", reportUntil)
		}
	}

	idFilter, err := identity.New(nil, false, classify.DefaultAuthorExcludeRegexes())
	if err != nil {
		return err
	}

	periods := report.Generate(commits, report.SourceOptions{
		Identity:      cfg.Mining.Identity,
		DateField:     cfg.Mining.DateField,
		IncludeMerges: cfg.Mining.IncludeMerges,
		IdFilter:      idFilter,
	}, community, report.Options{
		Bucket:       bucket,
		WindowDays:   reportWindowDays,
		TouchMode:    touchMode,
		WeightMode:   weightMode,
		HalfLifeDays: reportHalfLife,
		MinTouches:   reportMinTouches,
		MinShare:     reportMinShare,
		Top:          reportTop,
		Since:        since,
		Until:        until,
	})

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(periods)
	}
	for _, p := range periods {
		fmt.Printf("%s\n", p.Label)
		for _, r := range p.Rows {
			fmt.Printf("  %2d. %-30s contribution=%.6f share=%.6f tz=%s\n", r.Rank, r.PersonID, r.Contribution, r.Share, r.PrimaryTZ)
		}
	}
	return nil
}

// loadCommits prefers the snapshot's persisted commits.jsonl (emitted
// when mining ran with MiningConfig.EmitCommits set); falling back to a fresh C1 pass
// over repoPath when it is absent.
func loadCommits(repoPath, snapshotDir string) ([]gitlog.Commit, error) {
	path := filepath.Join(snapshotDir, "commits.jsonl")
	if f, err := os.Open(path); err == nil {
		defer f.Close()
		var commits []gitlog.Commit
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			var c gitlog.Commit
			if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
				return nil, ownererr.Wrapf(err, ownererr.Config, "parsing %s", path)
			}
			commits = append(commits, c)
		}
		if err := scanner.Err(); err != nil {
			return nil, ownererr.Wrapf(err, ownererr.Config, "reading %s", path)
		}
		return commits, nil
	}

	if repoPath == "" {
		return nil, ownererr.Newf(ownererr.MissingArtifact,
			"commits.jsonl not found under %s and --repo was not given to re-derive the commit stream", snapshotDir)
	}

	reader := gitlog.New(gitlog.Options{RepoPath: repoPath, IncludeMerges: true})
	var commits []gitlog.Commit
	err := reader.Each(context.Background(), func(c gitlog.Commit) error {
		commits = append(commits, c)
		return nil
	})
	return commits, err
}
