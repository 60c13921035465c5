package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ownermine/ownermine/internal/analytics"
	"github.com/ownermine/ownermine/internal/classify"
	"github.com/ownermine/ownermine/internal/community"
	"github.com/ownermine/ownermine/internal/config"
	"github.com/ownermine/ownermine/internal/git"
	graphexport "github.com/ownermine/ownermine/internal/graph"
	"github.com/ownermine/ownermine/internal/gitlog"
	"github.com/ownermine/ownermine/internal/identity"
	"github.com/ownermine/ownermine/internal/model"
	"github.com/ownermine/ownermine/internal/ownererr"
	"github.com/ownermine/ownermine/internal/snapshot"
)

var (
	mineRepoPath string
	mineOutDir   string
	mineNow      string
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Build an ownership snapshot from a repository's commit history",
	RunE:  runMine,
}

func init() {
	f := mineCmd.Flags()
	f.StringVar(&mineRepoPath, "repo", "", "repository path (default: current directory)")
	f.StringVar(&mineOutDir, "out", "", "output directory (overrides config)")
	f.StringVar(&mineNow, "now", "", "RFC3339 timestamp to treat as \"now\" (default: current time; use for reproducible snapshots)")
}

func runMine(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	m := cfg.Mining

	if mineRepoPath != "" {
		m.RepoPath = mineRepoPath
	}
	if m.RepoPath == "" {
		m.RepoPath = "."
	}
	if mineOutDir != "" {
		cfg.Output.Dir = mineOutDir
	}

	if err := git.DetectGitRepo(m.RepoPath); err != nil {
		return ownererr.Wrap(err, ownererr.Config, "checking repo path")
	}

	now := time.Now().UTC()
	if mineNow != "" {
		parsed, err := time.Parse(time.RFC3339, mineNow)
		if err != nil {
			return ownererr.Wrapf(err, ownererr.Config, "parsing --now %q", mineNow)
		}
		now = parsed
	}

	rules, err := classify.LoadRules(m.SensitiveConfigPath)
	if err != nil {
		return err
	}
	classifier := classify.New(rules)

	idFilter, err := identity.New(m.AuthorExcludeRegex, m.NoDefaultAuthorExcludes, classify.DefaultAuthorExcludeRegexes())
	if err != nil {
		return err
	}

	cochangeExclude := cfg.Cochange.Exclude
	if !cfg.Cochange.NoDefaultCochangeExcludes {
		cochangeExclude = append(append([]string{}, classify.DefaultCochangeExcludes()...), cochangeExclude...)
	}

	g := model.NewGraph(model.BuildOptions{
		Identity:           m.Identity,
		DateField:          m.DateField,
		IncludeMerges:      m.IncludeMerges,
		HalfLifeDays:       m.HalfLifeDays,
		Now:                now,
		Classifier:         classifier,
		IdFilter:           idFilter,
		CochangeEnabled:    !cfg.Cochange.Disabled,
		CochangeMaxFiles:   cfg.Cochange.MaxFiles,
		CochangeMinCount:   cfg.Cochange.MinCount,
		CochangeMinJaccard: cfg.Cochange.MinJaccard,
		CochangeExclude:    cochangeExclude,
		EmitCommits:        m.EmitCommits,
	})

	reader := gitlog.New(gitlog.Options{
		RepoPath:      m.RepoPath,
		Since:         m.Since,
		Until:         m.Until,
		IncludeMerges: m.IncludeMerges,
	})
	if err := reader.Each(ctx, g.Visit); err != nil {
		return err
	}

	result, err := snapshot.Write(g, snapshot.Options{
		Dir:                cfg.Output.Dir,
		Repo:               git.Identify(m.RepoPath),
		Now:                now,
		MinTouches:         m.MinTouches,
		CochangeMinCount:   cfg.Cochange.MinCount,
		CochangeMinJaccard: cfg.Cochange.MinJaccard,
		CommunityEnabled:   !cfg.Community.Disabled,
		CommunityOpts: community.Options{
			TopOwners: cfg.Community.TopOwners,
			MaxFiles:  cfg.Community.MaxFiles,
		},
		GraphML:     cfg.Output.GraphML,
		EmitCommits: m.EmitCommits,
		Analytics: analytics.Options{
			OwnerThreshold:     m.OwnerThreshold,
			BusFactorThreshold: m.BusFactorThreshold,
			StaleDays:          m.StaleDays,
			Now:                now,
		},
		Params: buildParams(m, cfg),
	})
	if err != nil {
		return err
	}

	if cfg.Neo4j.URI != "" {
		client, err := graphexport.NewClient(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database, log)
		if err != nil {
			return err
		}
		defer client.Close(ctx)
		if err := client.Export(ctx, g, result.Communities); err != nil {
			return err
		}
	}

	log.WithFields(map[string]interface{}{
		"commits": g.Stats.Commits(),
		"people":  len(g.People),
		"files":   len(g.Files),
		"edges":   len(g.Edges),
	}).Info("ownership snapshot written")
	fmt.Printf("wrote snapshot to %s (%d commits, %d people, %d files, %d edges)\n",
		cfg.Output.Dir, g.Stats.Commits(), len(g.People), len(g.Files), len(g.Edges))
	return nil
}

func buildParams(m config.MiningConfig, cfg *config.Config) snapshot.Params {
	return snapshot.Params{
		RepoPath:           m.RepoPath,
		Since:              m.Since,
		Until:              m.Until,
		Identity:           m.Identity,
		DateField:          m.DateField,
		IncludeMerges:      m.IncludeMerges,
		HalfLifeDays:       m.HalfLifeDays,
		OwnerThreshold:     m.OwnerThreshold,
		BusFactorThreshold: m.BusFactorThreshold,
		StaleDays:          m.StaleDays,
		MinTouches:         m.MinTouches,
		CochangeEnabled:    !cfg.Cochange.Disabled,
		CochangeMaxFiles:   cfg.Cochange.MaxFiles,
		CochangeMinCount:   cfg.Cochange.MinCount,
		CochangeMinJaccard: cfg.Cochange.MinJaccard,
		CochangeExclude:    cfg.Cochange.Exclude,
		CommunityEnabled:   !cfg.Community.Disabled,
		CommunityTopOwners: cfg.Community.TopOwners,
		MaxCommunityFiles:  cfg.Community.MaxFiles,
	}
}
