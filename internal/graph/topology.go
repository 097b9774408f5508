// Package graph computes structural reports over an ontology snapshot:
// connectivity, orphans, hubs, and per-type counts.
package graph

import (
	"sort"

	"archloom/loom/internal/model"
)

// HubNode is a node with high connectivity.
type HubNode struct {
	SemanticID string `json:"semantic_id"`
	Name       string `json:"name"`
	Degree     int    `json:"degree"`
	InDegree   int    `json:"in_degree"`
	OutDegree  int    `json:"out_degree"`
}

// TopologyReport is the structural summary of one snapshot.
type TopologyReport struct {
	TotalNodes        int                     `json:"total_nodes"`
	TotalEdges        int                     `json:"total_edges"`
	NodesByType       map[model.NodeType]int  `json:"nodes_by_type"`
	EdgesByType       map[model.EdgeType]int  `json:"edges_by_type"`
	NumComponents     int                     `json:"num_components"`
	LargestComponent  int                     `json:"largest_component"`
	SmallestComponent int                     `json:"smallest_component"`
	OrphanCount       int                     `json:"orphan_count"`
	Orphans           []string                `json:"orphans,omitempty"`
	Hubs              []HubNode               `json:"hubs,omitempty"`
}

// ComputeTopology analyzes components, orphans, and hubs. hubThreshold is the
// minimum degree for the hub list; topN caps the orphan and hub lists.
func ComputeTopology(snap *model.Snapshot, hubThreshold, topN int) *TopologyReport {
	report := &TopologyReport{
		TotalNodes:  len(snap.Nodes),
		TotalEdges:  len(snap.Edges),
		NodesByType: make(map[model.NodeType]int),
		EdgesByType: make(map[model.EdgeType]int),
	}
	if report.TotalNodes == 0 {
		return report
	}

	for _, n := range snap.Nodes {
		report.NodesByType[n.Type]++
	}
	for _, e := range snap.Edges {
		report.EdgesByType[e.Type]++
	}

	ids := snap.NodeIDs()
	uf := newUnionFind(ids)
	for _, e := range snap.Edges {
		uf.union(e.SourceID, e.TargetID)
	}
	components := uf.components()
	report.NumComponents = len(components)
	report.SmallestComponent = report.TotalNodes
	for _, c := range components {
		if len(c) > report.LargestComponent {
			report.LargestComponent = len(c)
		}
		if len(c) < report.SmallestComponent {
			report.SmallestComponent = len(c)
		}
	}

	var orphans []string
	var hubs []HubNode
	for _, id := range ids {
		in := len(snap.InAdj[id])
		out := len(snap.OutAdj[id])
		degree := in + out
		if degree == 0 {
			orphans = append(orphans, snap.Nodes[id].SemanticID)
		}
		if degree >= hubThreshold {
			hubs = append(hubs, HubNode{
				SemanticID: snap.Nodes[id].SemanticID,
				Name:       snap.Nodes[id].Name,
				Degree:     degree,
				InDegree:   in,
				OutDegree:  out,
			})
		}
	}

	sort.Strings(orphans)
	report.OrphanCount = len(orphans)
	if len(orphans) > topN {
		orphans = orphans[:topN]
	}
	report.Orphans = orphans

	sort.Slice(hubs, func(i, j int) bool {
		if hubs[i].Degree != hubs[j].Degree {
			return hubs[i].Degree > hubs[j].Degree
		}
		return hubs[i].SemanticID < hubs[j].SemanticID
	})
	if len(hubs) > topN {
		hubs = hubs[:topN]
	}
	report.Hubs = hubs

	return report
}
