// Package graph implements the optional Neo4j graph export (C15): a
// write-only sink that mirrors the frozen ownership/co-change graph as
// :Person/:File nodes and TOUCHED/CO_CHANGED relationships tagged with
// each file's community id.
package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/ownermine/ownermine/internal/community"
	"github.com/ownermine/ownermine/internal/model"
	"github.com/ownermine/ownermine/internal/ownererr"
)

// Client wraps the Neo4j driver used to export one snapshot.
type Client struct {
	driver   neo4j.DriverWithContext
	logger   *logrus.Logger
	database string
}

// NewClient dials uri and verifies connectivity before returning.
func NewClient(ctx context.Context, uri, user, password, database string, logger *logrus.Logger) (*Client, error) {
	if uri == "" || user == "" {
		return nil, ownererr.New(ownererr.Config, "neo4j uri/user missing")
	}
	if database == "" {
		database = "neo4j"
	}
	if logger == nil {
		logger = logrus.New()
	}

	driver, err := neo4j.NewDriverWithContext(uri,
		neo4j.BasicAuth(user, password, ""),
		func(cfg *neo4j.Config) {
			cfg.MaxConnectionPoolSize = 50
			cfg.ConnectionAcquisitionTimeout = 60 * time.Second
			cfg.MaxConnectionLifetime = 3600 * time.Second
			cfg.SocketConnectTimeout = 5 * time.Second
		})
	if err != nil {
		return nil, ownererr.Wrapf(err, ownererr.Config, "create neo4j driver")
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, ownererr.Wrapf(err, ownererr.Config, "connecting to neo4j at %s", uri)
	}

	logger.WithFields(logrus.Fields{"uri": uri, "database": database}).Info("graph export target connected")
	return &Client{driver: driver, logger: logger, database: database}, nil
}

// Close releases the underlying driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Export writes g's frozen graph as :Person nodes and :File nodes (each
// file carrying its community_id, 0 when it is in no community), a
// TOUCHED relationship for every touch edge with touches, recency_weight
// and sensitive_weight, and a CO_CHANGED relationship for every co-change
// pair with its raw count. The min_touches, min_count and min_jaccard
// filters of the CSV artifacts are not applied, and no first/last-seen
// times or Jaccard values are written. It is write-only: the engine never
// reads ownership data back from Neo4j.
func (c *Client) Export(ctx context.Context, g *model.Graph, communities []community.Community) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	if _, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		constraints := []string{
			"CREATE CONSTRAINT IF NOT EXISTS FOR (p:Person) REQUIRE p.person_id IS UNIQUE",
			"CREATE CONSTRAINT IF NOT EXISTS FOR (f:File) REQUIRE f.path IS UNIQUE",
		}
		for _, stmt := range constraints {
			if _, err := tx.Run(ctx, stmt, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}); err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "creating neo4j constraints")
	}

	memberOf := make(map[string]int, len(g.Files))
	for _, cmt := range communities {
		for _, f := range cmt.AllFiles {
			memberOf[f] = cmt.ID
		}
	}

	if _, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for id, p := range g.People {
			if _, err := tx.Run(ctx, `
				MERGE (p:Person {person_id: $id})
				SET p.name = $name, p.commit_count = $commits, p.touches = $touches
			`, map[string]any{
				"id": id, "name": p.Name, "commits": p.CommitCount, "touches": p.Touches,
			}); err != nil {
				return nil, err
			}
		}
		for path, f := range g.Files {
			if _, err := tx.Run(ctx, `
				MERGE (f:File {path: $path})
				SET f.touches = $touches, f.bus_factor = $busFactor,
					f.sensitivity_score = $sensitivity, f.community_id = $community
			`, map[string]any{
				"path": path, "touches": f.Touches, "busFactor": f.BusFactor(),
				"sensitivity": f.SensitivityScore(), "community": memberOf[path],
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}); err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "writing neo4j nodes")
	}

	if _, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for key, e := range g.Edges {
			if _, err := tx.Run(ctx, `
				MATCH (p:Person {person_id: $person}), (f:File {path: $path})
				MERGE (p)-[r:TOUCHED]->(f)
				SET r.touches = $touches, r.recency_weight = $recency, r.sensitive_weight = $sensitive
			`, map[string]any{
				"person": key.PersonID, "path": key.FilePath,
				"touches": e.Touches, "recency": e.RecencyWeight, "sensitive": e.SensitiveWeight,
			}); err != nil {
				return nil, err
			}
		}
		for key, e := range g.CoChange {
			if _, err := tx.Run(ctx, `
				MATCH (a:File {path: $a}), (b:File {path: $b})
				MERGE (a)-[r:CO_CHANGED]->(b)
				SET r.count = $count
			`, map[string]any{"a": key.FileA, "b": key.FileB, "count": e.Count}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}); err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "writing neo4j relationships")
	}

	c.logger.WithFields(logrus.Fields{
		"people": len(g.People), "files": len(g.Files),
		"touched": len(g.Edges), "co_changed": len(g.CoChange),
	}).Info("graph export complete")
	return nil
}
