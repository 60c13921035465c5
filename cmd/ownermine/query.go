package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ownermine/ownermine/internal/cache"
	"github.com/ownermine/ownermine/internal/query"
	"github.com/ownermine/ownermine/internal/storage"
)

var (
	querySnapshotDir string
	queryUseIndex    bool
	queryCacheAddr   string
	queryJSON        bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Answer bounded queries against a snapshot (C9)",
}

func init() {
	pf := queryCmd.PersistentFlags()
	pf.StringVar(&querySnapshotDir, "snapshot", "./ownership-snapshot", "snapshot directory to query")
	pf.BoolVar(&queryUseIndex, "index", false, "accelerate queries with the SQLite index (C13)")
	pf.StringVar(&queryCacheAddr, "cache-addr", "", "Redis address to cache query results against (C14)")
	pf.BoolVar(&queryJSON, "json", false, "print results as JSON instead of text")

	queryCmd.AddCommand(
		queryPeopleCmd, queryFilesCmd, queryPersonCmd, queryFileCmd,
		queryCochangeCmd, queryTagCmd, querySummaryCmd, queryCommunitiesCmd, queryCommunityCmd,
	)
}

// engineAndCache builds the query.Engine for the current invocation,
// optionally backed by the SQLite index, plus a cache.Client when
// --cache-addr is set. The returned cleanup function closes whichever of
// the two was opened and is safe to call when neither was enabled.
func engineAndCache(ctx context.Context) (*query.Engine, *cache.Client, func(), error) {
	var source query.RecordSource
	var closeIndex func()

	if queryUseIndex {
		idx, err := storage.Open(cfg.Index.Path, querySnapshotDir, log)
		if err != nil {
			return nil, nil, func() {}, err
		}
		source = idx
		closeIndex = func() { idx.Close() }
	}

	var cacheClient *cache.Client
	if queryCacheAddr != "" {
		c, err := cache.NewClient(ctx, queryCacheAddr, cfg.QueryCache.Password, 0, log)
		if err != nil {
			if closeIndex != nil {
				closeIndex()
			}
			return nil, nil, func() {}, err
		}
		cacheClient = c
	}

	cleanup := func() {
		if closeIndex != nil {
			closeIndex()
		}
		if cacheClient != nil {
			cacheClient.Close()
		}
	}

	return query.NewEngine(querySnapshotDir, source), cacheClient, cleanup, nil
}

// cachedGeneratedAt loads summary.json's generated_at once per command,
// used as part of every cache key so a new snapshot invalidates old
// cached answers (§4.9A).
func cachedGeneratedAt(e *query.Engine) time.Time {
	summary, err := e.Summary()
	if err != nil {
		return time.Time{}
	}
	return summary.GeneratedAt
}

func emit(v interface{}, textFn func()) {
	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(v)
		return
	}
	textFn()
}

var (
	peopleEmailSubstr  string
	peopleMinTouches   int
	peopleMinSensitive float64
	peopleSort         string
	peopleLimit        int
)

var queryPeopleCmd = &cobra.Command{
	Use:   "people",
	Short: "List contributors, filtered and sorted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, c, cleanup, err := engineAndCache(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		filter := query.PeopleFilter{
			EmailSubstring: peopleEmailSubstr,
			MinTouches:     peopleMinTouches,
			MinSensitive:   peopleMinSensitive,
			SortKey:        peopleSort,
			Limit:          peopleLimit,
		}
		key := cache.Key("people", map[string]interface{}{
			"email": filter.EmailSubstring, "min_touches": filter.MinTouches,
			"min_sensitive": filter.MinSensitive, "sort": filter.SortKey, "limit": filter.Limit,
		}, cachedGeneratedAt(e))
		rows, err := cache.GetOrCompute(ctx, c, key, func() ([]query.PersonRow, error) { return e.People(filter) })
		if err != nil {
			return err
		}
		emit(rows, func() {
			for _, p := range rows {
				fmt.Printf("%-30s %-40s touches=%d sensitive=%.2f tz=%s\n", p.PersonID, p.Name, p.Touches, p.SensitiveTouches, p.PrimaryTZOffset)
			}
		})
		return nil
	},
}

func init() {
	f := queryPeopleCmd.Flags()
	f.StringVar(&peopleEmailSubstr, "email", "", "filter by email substring")
	f.IntVar(&peopleMinTouches, "min-touches", 0, "minimum touches")
	f.Float64Var(&peopleMinSensitive, "min-sensitive", 0, "minimum sensitive touches")
	f.StringVar(&peopleSort, "sort", "touches", "sort key")
	f.IntVar(&peopleLimit, "limit", 20, "max rows (0 = unlimited)")
}

var (
	filesPathSubstr  string
	filesTag         string
	filesMaxBus      int
	filesMinSensitiv float64
	filesSort        string
	filesLimit       int
)

var queryFilesCmd = &cobra.Command{
	Use:   "files",
	Short: "List files, filtered and sorted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, c, cleanup, err := engineAndCache(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		filter := query.FilesFilter{
			PathSubstring:  filesPathSubstr,
			Tag:            filesTag,
			MaxBusFactor:   filesMaxBus,
			MinSensitivity: filesMinSensitiv,
			SortKey:        filesSort,
			Limit:          filesLimit,
		}
		key := cache.Key("files", map[string]interface{}{
			"path": filter.PathSubstring, "tag": filter.Tag, "max_bus_factor": filter.MaxBusFactor,
			"min_sensitivity": filter.MinSensitivity, "sort": filter.SortKey, "limit": filter.Limit,
		}, cachedGeneratedAt(e))
		rows, err := cache.GetOrCompute(ctx, c, key, func() ([]query.FileRow, error) { return e.Files(filter) })
		if err != nil {
			return err
		}
		emit(rows, func() {
			for _, f := range rows {
				fmt.Printf("%-50s touches=%d bus_factor=%d sensitivity=%.2f tags=%v\n", f.Path, f.Touches, f.BusFactor, f.SensitivityScore, f.SensitivityTags)
			}
		})
		return nil
	},
}

func init() {
	f := queryFilesCmd.Flags()
	f.StringVar(&filesPathSubstr, "path", "", "filter by path substring")
	f.StringVar(&filesTag, "tag", "", "filter by sensitivity tag")
	f.IntVar(&filesMaxBus, "max-bus-factor", 0, "maximum bus factor (0 = unset)")
	f.Float64Var(&filesMinSensitiv, "min-sensitivity", 0, "minimum sensitivity score")
	f.StringVar(&filesSort, "sort", "touches", "sort key")
	f.IntVar(&filesLimit, "limit", 20, "max rows (0 = unlimited)")
}

var (
	personSort  string
	personLimit int
)

var queryPersonCmd = &cobra.Command{
	Use:   "person <id-or-substring>",
	Short: "Show one person and their top touched files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, c, cleanup, err := engineAndCache(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		key := cache.Key("person", map[string]interface{}{"id": args[0], "sort": personSort, "limit": personLimit}, cachedGeneratedAt(e))
		result, err := cache.GetOrCompute(ctx, c, key, func() (query.PersonResult, error) {
			return e.Person(args[0], personSort, personLimit)
		})
		if err != nil {
			return err
		}
		emit(result, func() {
			p := result.Person
			fmt.Printf("%s <%s> touches=%d sensitive=%.2f tz=%s\n", p.Name, p.Email, p.Touches, p.SensitiveTouches, p.PrimaryTZOffset)
			for _, ed := range result.TopFiles {
				fmt.Printf("  %-50s touches=%d recency=%.6f\n", ed.FileID, ed.Touches, ed.RecencyWeight)
			}
		})
		return nil
	},
}

func init() {
	f := queryPersonCmd.Flags()
	f.StringVar(&personSort, "sort", "touches", "top-files sort key")
	f.IntVar(&personLimit, "limit", 10, "top-files limit")
}

var (
	fileSort  string
	fileLimit int
)

var queryFileCmd = &cobra.Command{
	Use:   "file <id-or-substring>",
	Short: "Show one file and its top contributors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, c, cleanup, err := engineAndCache(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		key := cache.Key("file", map[string]interface{}{"id": args[0], "sort": fileSort, "limit": fileLimit}, cachedGeneratedAt(e))
		result, err := cache.GetOrCompute(ctx, c, key, func() (query.FileResult, error) {
			return e.File(args[0], fileSort, fileLimit)
		})
		if err != nil {
			return err
		}
		emit(result, func() {
			f := result.File
			fmt.Printf("%s bus_factor=%d sensitivity=%.2f tags=%v\n", f.Path, f.BusFactor, f.SensitivityScore, f.SensitivityTags)
			for _, ed := range result.TopPersons {
				fmt.Printf("  %-30s touches=%d recency=%.6f\n", ed.PersonID, ed.Touches, ed.RecencyWeight)
			}
		})
		return nil
	},
}

func init() {
	f := queryFileCmd.Flags()
	f.StringVar(&fileSort, "sort", "touches", "top-contributors sort key")
	f.IntVar(&fileLimit, "limit", 10, "top-contributors limit")
}

var (
	cochangeMinJaccard float64
	cochangeMinCount   int
	cochangeLimit      int
)

var queryCochangeCmd = &cobra.Command{
	Use:   "cochange <file-id-or-substring>",
	Short: "List files that tend to change together with the given file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, c, cleanup, err := engineAndCache(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		key := cache.Key("cochange", map[string]interface{}{
			"id": args[0], "min_jaccard": cochangeMinJaccard, "min_count": cochangeMinCount, "limit": cochangeLimit,
		}, cachedGeneratedAt(e))
		result, err := cache.GetOrCompute(ctx, c, key, func() (query.CoChangeResult, error) {
			return e.CoChange(args[0], cochangeMinJaccard, cochangeMinCount, cochangeLimit)
		})
		if err != nil {
			return err
		}
		emit(result, func() {
			fmt.Printf("%s\n", result.File.Path)
			for _, n := range result.Neighbors {
				fmt.Printf("  %-50s count=%d jaccard=%.6f\n", n.FileID, n.Count, n.Jaccard)
			}
		})
		return nil
	},
}

func init() {
	f := queryCochangeCmd.Flags()
	f.Float64Var(&cochangeMinJaccard, "min-jaccard", 0, "minimum jaccard similarity")
	f.IntVar(&cochangeMinCount, "min-count", 0, "minimum co-change count")
	f.IntVar(&cochangeLimit, "limit", 20, "max neighbors (0 = unlimited)")
}

var queryTagLimit int

var queryTagCmd = &cobra.Command{
	Use:   "tag <tag>",
	Short: "Show top persons and files carrying a sensitivity tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, c, cleanup, err := engineAndCache(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		key := cache.Key("tag", map[string]interface{}{"tag": args[0], "limit": queryTagLimit}, cachedGeneratedAt(e))
		result, err := cache.GetOrCompute(ctx, c, key, func() (query.TagResult, error) { return e.Tag(args[0], queryTagLimit) })
		if err != nil {
			return err
		}
		emit(result, func() {
			fmt.Printf("tag=%s\n", result.Tag)
			fmt.Println("top persons:")
			for _, p := range result.TopPersons {
				fmt.Printf("  %-30s sensitive=%.2f\n", p.PersonID, p.SensitiveTouches)
			}
			fmt.Println("top files:")
			for _, f := range result.TopFiles {
				fmt.Printf("  %-50s sensitivity=%.2f\n", f.Path, f.SensitivityScore)
			}
		})
		return nil
	},
}

func init() {
	queryTagCmd.Flags().IntVar(&queryTagLimit, "limit", 10, "max rows per section")
}

var querySummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the snapshot's summary.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, _, cleanup, err := engineAndCache(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		summary, err := e.Summary()
		if err != nil {
			return err
		}
		emit(summary, func() {
			fmt.Printf("repo=%s generated_at=%s commits=%d people=%d files=%d\n",
				summary.Repo, summary.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
				summary.Stats.Commits, summary.Stats.People, summary.Stats.Files)
			fmt.Printf("hidden owners: %d, bus-factor hotspots: %d, orphans: %d\n",
				len(summary.HiddenOwners), len(summary.BusFactorHotspots), len(summary.OrphanedSensitiveCode))
		})
		return nil
	},
}

var (
	communitiesIncludeFiles bool
	communitiesFileLimit    int
	communitiesLimit        int
)

var queryCommunitiesCmd = &cobra.Command{
	Use:   "communities",
	Short: "List every community",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, c, cleanup, err := engineAndCache(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		key := cache.Key("communities", map[string]interface{}{
			"include_files": communitiesIncludeFiles, "file_limit": communitiesFileLimit, "limit": communitiesLimit,
		}, cachedGeneratedAt(e))
		rows, err := cache.GetOrCompute(ctx, c, key, func() ([]query.CommunityEntry, error) {
			return e.Communities("", communitiesIncludeFiles, communitiesFileLimit, communitiesLimit)
		})
		if err != nil {
			return err
		}
		emit(rows, func() { printCommunities(rows) })
		return nil
	},
}

func init() {
	f := queryCommunitiesCmd.Flags()
	f.BoolVar(&communitiesIncludeFiles, "include-files", false, "include each community's member files")
	f.IntVar(&communitiesFileLimit, "file-limit", 0, "truncate each community's file list (0 = unlimited)")
	f.IntVar(&communitiesLimit, "limit", 0, "max communities (0 = unlimited)")
}

var communityFileLimit int

var queryCommunityCmd = &cobra.Command{
	Use:   "community <id>",
	Short: "Show one community",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, c, cleanup, err := engineAndCache(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		key := cache.Key("community", map[string]interface{}{"id": args[0], "file_limit": communityFileLimit}, cachedGeneratedAt(e))
		rows, err := cache.GetOrCompute(ctx, c, key, func() ([]query.CommunityEntry, error) {
			return e.Communities(args[0], true, communityFileLimit, 0)
		})
		if err != nil {
			return err
		}
		emit(rows, func() { printCommunities(rows) })
		return nil
	},
}

func init() {
	queryCommunityCmd.Flags().IntVar(&communityFileLimit, "file-limit", 0, "truncate the file list (0 = unlimited)")
}

func printCommunities(rows []query.CommunityEntry) {
	for _, c := range rows {
		fmt.Printf("community %d: size=%d bus_factor=%d owners=%d\n", c.ID, c.Size, c.BusFactor, c.OwnerCount)
		for _, m := range c.Maintainers {
			fmt.Printf("  %-30s touch_share=%.6f\n", m.PersonID, m.TouchShare)
		}
		if len(c.Files) > 0 {
			fmt.Printf("  files (%d%s):\n", len(c.Files), trunc(c.Truncated))
			for _, f := range c.Files {
				fmt.Printf("    %s\n", f)
			}
		}
	}
}

func trunc(truncated bool) string {
	if truncated {
		return ", truncated"
	}
	return ""
}
