package snapshot

import (
	"bufio"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/ownermine/ownermine/internal/analytics"
	"github.com/ownermine/ownermine/internal/community"
	"github.com/ownermine/ownermine/internal/gitlog"
	"github.com/ownermine/ownermine/internal/model"
	"github.com/ownermine/ownermine/internal/ownererr"
	"github.com/ownermine/ownermine/internal/weight"
)

func writeJSON(path string, v interface{}) error {
	tmp := path + ".tmp"
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "marshalling %s", path)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "writing %s", path)
	}
	return os.Rename(tmp, path)
}

// buildSummary assembles the summary.json document (§6).
func buildSummary(g *model.Graph, result analytics.Result, repo string, params Params, now time.Time, cochangeKept int) Summary {
	hiddenOwners := make([]HiddenOwnerJSON, 0, len(result.HiddenOwners))
	for _, h := range result.HiddenOwners {
		hiddenOwners = append(hiddenOwners, HiddenOwnerJSON{
			Tag: h.Tag, PersonID: h.PersonID, Share: weight.RoundPrecise(h.Share),
		})
	}

	hotspots := make([]HotspotJSON, 0, len(result.Hotspots))
	for _, h := range result.Hotspots {
		hotspots = append(hotspots, hotspotJSON(h))
	}

	orphans := make([]OrphanJSON, 0, len(result.Orphans))
	for _, o := range result.Orphans {
		orphans = append(orphans, OrphanJSON{HotspotJSON: hotspotJSON(o.Hotspot), DaysStale: o.DaysStale})
	}

	cochangePairs := len(g.CoChange)

	return Summary{
		GeneratedAt: now,
		Repo:        repo,
		Parameters:  params,
		OrphanedSensitiveCode: orphans,
		HiddenOwners:          hiddenOwners,
		BusFactorHotspots:     hotspots,
		Stats: Stats{
			Commits:                   g.Stats.Commits(),
			CommitsSeen:               g.Stats.CommitsSeen,
			CommitsExcludedIdentities: g.Stats.CommitsExcludedIdentities,
			CommitsExcludedMerges:     g.Stats.CommitsExcludedMerges,
			Edges:                     len(g.Edges),
			People:                    len(g.People),
			Files:                     len(g.Files),
			CochangePairsTotal:        cochangePairs,
			CochangeEdges:             cochangeKept,
			CochangeCommitsUsed:       g.Stats.CochangeCommitsUsed,
			CochangeCommitsSkipped:    g.Stats.CochangeCommitsSkipped,
			CochangeCommitsFiltered:   g.Stats.CochangeCommitsFiltered,
			CochangeFilesExcluded:     g.Stats.CochangeFilesExcluded,
		},
	}
}

func hotspotJSON(h analytics.Hotspot) HotspotJSON {
	return HotspotJSON{
		Path:      h.Path,
		BusFactor: h.BusFactor,
		LastSeen:  h.LastSeen,
		Tags:      h.Tags,
		TopOwner:  h.TopOwner,
	}
}

// buildCommunitiesJSON renders the truncated per-community artifact (§4.7,
// §6).
func buildCommunitiesJSON(communities []community.Community) []CommunityJSON {
	out := make([]CommunityJSON, 0, len(communities))
	for _, c := range communities {
		out = append(out, CommunityJSON{
			ID:          c.ID,
			Size:        len(c.AllFiles),
			Files:       c.Files,
			Maintainers: ownerJSONs(c.Maintainers),
			BusFactor:   c.BusFactor,
			OwnerCount:  c.OwnerCount,
			Totals:      totalsJSON(c.Totals),
		})
	}
	return out
}

func ownerJSONs(owners []community.Owner) []OwnerJSON {
	out := make([]OwnerJSON, 0, len(owners))
	for _, o := range owners {
		out = append(out, OwnerJSON{
			PersonID:       o.PersonID,
			Name:           o.Name,
			Touches:        o.Touches,
			TouchShare:     weight.RoundPrecise(o.TouchShare),
			RecencyShare:   weight.RoundPrecise(o.RecencyShare),
			SensitiveShare: weight.RoundPrecise(o.SensitiveShare),
			PrimaryTZ:      gitlog.FormatOffset(o.PrimaryTZ),
		})
	}
	return out
}

func totalsJSON(t community.Totals) TotalsJSON {
	return TotalsJSON{
		Touches:         t.Touches,
		RecencyWeight:   weight.RoundPrecise(t.RecencyWeight),
		SensitiveWeight: weight.RoundMoney(t.SensitiveWeight),
	}
}

// buildGraphDoc renders the structured node-link graph export (§4.7, §4.8,
// §6): nodes are the graph's files tagged with their community id, edges
// are the same weighted edges C7 partitioned (co-change or ownership
// projection), and the graph-level "community_maintainers" attribute
// carries the un-truncated rollups.
func buildGraphDoc(g *model.Graph, kind community.GraphKind, edges []community.WeightedEdge, communities []community.Community) GraphDoc {
	memberOf := make(map[string]int, len(g.Files))
	for _, c := range communities {
		for _, f := range c.AllFiles {
			memberOf[f] = c.ID
		}
	}

	var paths []string
	for p := range g.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	nodes := make([]GraphNode, 0, len(paths))
	for _, p := range paths {
		nodes = append(nodes, GraphNode{ID: p, CommunityID: memberOf[p]})
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FileA != edges[j].FileA {
			return edges[i].FileA < edges[j].FileA
		}
		return edges[i].FileB < edges[j].FileB
	})
	links := make([]GraphLink, 0, len(edges))
	for _, e := range edges {
		links = append(links, GraphLink{Source: e.FileA, Target: e.FileB, Weight: weight.RoundPrecise(e.Weight)})
	}

	maintainers := make([]CommunityMaintainer, 0, len(communities))
	for _, c := range communities {
		maintainers = append(maintainers, CommunityMaintainer{
			ID:          c.ID,
			Size:        len(c.AllFiles),
			Maintainers: ownerJSONs(c.Maintainers),
			BusFactor:   c.BusFactor,
			OwnerCount:  c.OwnerCount,
			Totals:      totalsJSON(c.Totals),
		})
	}

	return GraphDoc{
		Directed:   false,
		Multigraph: false,
		Graph:      GraphAttrs{CommunityMaintainers: maintainers},
		Nodes:      nodes,
		Links:      links,
	}
}

// graphmlDoc and its nested types implement the minimal GraphML subset
// §4.8's optional "{ownership|cochange}.graphml" artifact needs: typed
// node/edge keys plus one <graph> element.
type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	Keys    []graphmlKey `xml:"key"`
	Graph   graphmlGraph `xml:"graph"`
}

type graphmlKey struct {
	ID     string `xml:"id,attr"`
	For    string `xml:"for,attr"`
	Name   string `xml:"attr.name,attr"`
	Type   string `xml:"attr.type,attr"`
}

type graphmlGraph struct {
	ID        string        `xml:"id,attr"`
	EdgeDefault string      `xml:"edgedefault,attr"`
	Nodes     []graphmlNode `xml:"node"`
	Edges     []graphmlEdge `xml:"edge"`
}

type graphmlNode struct {
	ID   string          `xml:"id,attr"`
	Data []graphmlNodeData `xml:"data"`
}

type graphmlNodeData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type graphmlEdge struct {
	Source string             `xml:"source,attr"`
	Target string             `xml:"target,attr"`
	Data   []graphmlNodeData  `xml:"data"`
}

func buildGraphML(doc GraphDoc) graphmlDoc {
	out := graphmlDoc{
		Keys: []graphmlKey{
			{ID: "d_community", For: "node", Name: "community_id", Type: "long"},
			{ID: "d_weight", For: "edge", Name: "weight", Type: "double"},
		},
		Graph: graphmlGraph{ID: "G", EdgeDefault: "undirected"},
	}
	for _, n := range doc.Nodes {
		out.Graph.Nodes = append(out.Graph.Nodes, graphmlNode{
			ID: n.ID,
			Data: []graphmlNodeData{
				{Key: "d_community", Value: strconv.Itoa(n.CommunityID)},
			},
		})
	}
	for _, l := range doc.Links {
		out.Graph.Edges = append(out.Graph.Edges, graphmlEdge{
			Source: l.Source,
			Target: l.Target,
			Data: []graphmlNodeData{
				{Key: "d_weight", Value: weight.Precise(l.Weight)},
			},
		})
	}
	return out
}

func writeGraphML(path string, doc GraphDoc) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "creating %s", path)
	}
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	if err := enc.Encode(buildGraphML(doc)); err != nil {
		f.Close()
		return ownererr.Wrapf(err, ownererr.Config, "encoding %s", path)
	}
	if err := f.Close(); err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "closing %s", path)
	}
	return os.Rename(tmp, path)
}

// writeCommitsJSONL streams g.Commits to commits.jsonl, one JSON object
// per line, preserving ingestion order (§4.8).
func writeCommitsJSONL(dir string, commits []gitlog.Commit) error {
	path := filepath.Join(dir, "commits.jsonl")
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "creating %s", path)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, c := range commits {
		if err := enc.Encode(c); err != nil {
			f.Close()
			return ownererr.Wrapf(err, ownererr.Config, "encoding commit %s", c.Hash)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return ownererr.Wrapf(err, ownererr.Config, "flushing %s", path)
	}
	if err := f.Close(); err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "closing %s", path)
	}
	return os.Rename(tmp, path)
}
