// Package config loads the engine's parameters the way the rest of this
// codebase lineage does: compiled defaults, then an optional YAML file,
// then environment variables, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every knob the mining engine, query engine, and windowed
// report accept. Only a subset of the mining, co-change and community
// settings is echoed into summary.json's "parameters" object (see
// snapshot.Params); the output, index, query-cache and Neo4j settings
// are not echoed.
type Config struct {
	Mining     MiningConfig     `yaml:"mining"`
	Cochange   CochangeConfig   `yaml:"cochange"`
	Community  CommunityConfig  `yaml:"community"`
	Output     OutputConfig     `yaml:"output"`
	Index      IndexConfig      `yaml:"index"`
	QueryCache QueryCacheConfig `yaml:"query_cache"`
	Neo4j      Neo4jConfig      `yaml:"neo4j"`
}

// MiningConfig governs C1/C3/C4/C5 ingestion.
type MiningConfig struct {
	RepoPath                string   `yaml:"repo_path"`
	Since                   string   `yaml:"since"`
	Until                   string   `yaml:"until"`
	Identity                string   `yaml:"identity"` // "author" or "committer"
	DateField               string   `yaml:"date_field"`
	IncludeMerges           bool     `yaml:"include_merges"`
	HalfLifeDays            float64  `yaml:"half_life_days"`
	SensitiveConfigPath     string   `yaml:"sensitive_config"`
	OwnerThreshold          float64  `yaml:"owner_threshold"`
	BusFactorThreshold      int      `yaml:"bus_factor_threshold"`
	StaleDays               int      `yaml:"stale_days"`
	MinTouches              int      `yaml:"min_touches"`
	EmitCommits             bool     `yaml:"emit_commits"`
	AuthorExcludeRegex      []string `yaml:"author_exclude_regex"`
	NoDefaultAuthorExcludes bool     `yaml:"no_default_author_excludes"`
}

// CochangeConfig governs §4.5.1 co-change accounting and emission.
type CochangeConfig struct {
	Disabled                  bool     `yaml:"disabled"`
	MaxFiles                  int      `yaml:"max_files"`
	MinCount                  int      `yaml:"min_count"`
	MinJaccard                float64  `yaml:"min_jaccard"`
	Exclude                   []string `yaml:"exclude"`
	NoDefaultCochangeExcludes bool     `yaml:"no_default_cochange_excludes"`
}

// CommunityConfig governs C7.
type CommunityConfig struct {
	Disabled  bool `yaml:"disabled"`
	MaxFiles  int  `yaml:"max_community_files"`
	TopOwners int  `yaml:"community_top_owners"`
}

// OutputConfig governs C8.
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	GraphML bool   `yaml:"graphml"`
}

// IndexConfig governs the optional C13 SQLite query accelerator.
type IndexConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// QueryCacheConfig governs the optional C14 Redis query-result cache.
type QueryCacheConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Neo4jConfig governs the optional C15 graph export sink.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Default returns the engine's compiled-in defaults, matching the
// pre-distillation reference tool's argparse defaults where one exists.
func Default() *Config {
	return &Config{
		Mining: MiningConfig{
			Identity:           "author",
			DateField:          "author",
			HalfLifeDays:       180,
			OwnerThreshold:     0.6,
			BusFactorThreshold: 2,
			StaleDays:          365,
			MinTouches:         1,
		},
		Cochange: CochangeConfig{
			MaxFiles:   32,
			MinCount:   2,
			MinJaccard: 0.1,
		},
		Community: CommunityConfig{
			MaxFiles:  200,
			TopOwners: 5,
		},
		Output: OutputConfig{
			Dir: "./ownership-snapshot",
		},
		Index: IndexConfig{
			Path: ".ownermine-index.db",
		},
		Neo4j: Neo4jConfig{
			Database: "neo4j",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file, and
// OWNERMINE_-prefixed environment variables, in that order.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("mining", cfg.Mining)
	v.SetDefault("cochange", cfg.Cochange)
	v.SetDefault("community", cfg.Community)
	v.SetDefault("output", cfg.Output)
	v.SetDefault("index", cfg.Index)
	v.SetDefault("query_cache", cfg.QueryCache)
	v.SetDefault("neo4j", cfg.Neo4j)

	v.SetEnvPrefix("OWNERMINE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".ownermine")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".ownermine"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env", ".env.example"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		homeEnv := filepath.Join(home, ".ownermine", ".env")
		if _, err := os.Stat(homeEnv); err == nil {
			_ = godotenv.Load(homeEnv)
		}
	}
}

// applyEnvOverrides covers the handful of settings an operator most
// often wants to override without editing a YAML file: repo location,
// output directory, and the optional backing services' addresses.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OWNERMINE_REPO_PATH"); v != "" {
		cfg.Mining.RepoPath = v
	}
	if v := os.Getenv("OWNERMINE_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = expandPath(v)
	}
	if v := os.Getenv("OWNERMINE_HALF_LIFE_DAYS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Mining.HalfLifeDays = f
		}
	}
	if v := os.Getenv("OWNERMINE_REDIS_ADDR"); v != "" {
		cfg.QueryCache.Addr = v
	}
	if v := os.Getenv("OWNERMINE_NEO4J_URI"); v != "" {
		cfg.Neo4j.URI = v
	}
	if v := os.Getenv("OWNERMINE_NEO4J_PASSWORD"); v != "" {
		cfg.Neo4j.Password = v
	}
	if v := os.Getenv("OWNERMINE_AUTHOR_EXCLUDE_REGEX"); v != "" {
		cfg.Mining.AuthorExcludeRegex = append(cfg.Mining.AuthorExcludeRegex, strings.Split(v, ",")...)
	}
}

func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// Save writes cfg to path in YAML form, creating parent directories as
// needed.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("mining", c.Mining)
	v.Set("cochange", c.Cochange)
	v.Set("community", c.Community)
	v.Set("output", c.Output)
	v.Set("index", c.Index)
	v.Set("query_cache", c.QueryCache)
	v.Set("neo4j", c.Neo4j)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
