// Package aggregates holds the FlowGraph aggregate root.
//
// The graph is owned by the caller: every mutating operation deep-copies the
// aggregate once at entry and returns the copy, so inputs are never aliased.
package aggregates

import (
	"flowsync-core/domain/core/entities"
)

// FlowGraph is the probabilistic flow graph: nodes, directed edges carrying
// probability/cost parameters, and chart-level metadata.
type FlowGraph struct {
	Nodes    []entities.Node        `yaml:"nodes" json:"nodes"`
	Edges    []entities.Edge        `yaml:"edges" json:"edges"`
	Metadata map[string]interface{} `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Clone returns a fully independent copy of the graph
func (g *FlowGraph) Clone() *FlowGraph {
	out := &FlowGraph{
		Nodes: make([]entities.Node, len(g.Nodes)),
		Edges: make([]entities.Edge, len(g.Edges)),
	}
	for i := range g.Nodes {
		out.Nodes[i] = *g.Nodes[i].Clone()
	}
	for i := range g.Edges {
		out.Edges[i] = *g.Edges[i].Clone()
	}
	if g.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(g.Metadata))
		for k, v := range g.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// NodeByRef finds a node by uuid or human-readable id
func (g *FlowGraph) NodeByRef(ref string) *entities.Node {
	if ref == "" {
		return nil
	}
	for i := range g.Nodes {
		if g.Nodes[i].UUID == ref {
			return &g.Nodes[i]
		}
	}
	for i := range g.Nodes {
		if g.Nodes[i].ID == ref {
			return &g.Nodes[i]
		}
	}
	return nil
}

// EdgeByRef finds an edge by uuid or human-readable id
func (g *FlowGraph) EdgeByRef(ref string) *entities.Edge {
	if ref == "" {
		return nil
	}
	for i := range g.Edges {
		if g.Edges[i].UUID == ref {
			return &g.Edges[i]
		}
	}
	for i := range g.Edges {
		if g.Edges[i].ID == ref {
			return &g.Edges[i]
		}
	}
	return nil
}

// HasNodeID reports whether any current node carries the given human id
func (g *FlowGraph) HasNodeID(id string) bool {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return true
		}
	}
	return false
}

// HasEdgeID reports whether any edge carries the given human id
func (g *FlowGraph) HasEdgeID(id string) bool {
	for i := range g.Edges {
		if g.Edges[i].ID == id {
			return true
		}
	}
	return false
}

// OutgoingEdges returns pointers to every edge leaving the given node
func (g *FlowGraph) OutgoingEdges(node *entities.Node) []*entities.Edge {
	var out []*entities.Edge
	for i := range g.Edges {
		if g.Edges[i].FromNode(node.UUID, node.ID) {
			out = append(out, &g.Edges[i])
		}
	}
	return out
}

// SiblingEdges returns the edges co-normalized with origin: same source node,
// a probability slot present, and (when the origin carries a case variant)
// the same variant and consistent case id. The origin itself is excluded.
func (g *FlowGraph) SiblingEdges(origin *entities.Edge) []*entities.Edge {
	source := g.NodeByRef(origin.From)
	if source == nil {
		return nil
	}

	var siblings []*entities.Edge
	for i := range g.Edges {
		edge := &g.Edges[i]
		if edge.UUID == origin.UUID {
			continue
		}
		if !edge.FromNode(source.UUID, source.ID) {
			continue
		}
		if edge.P == nil {
			continue
		}
		if origin.CaseVariant != "" {
			if edge.CaseVariant != origin.CaseVariant {
				continue
			}
			if origin.CaseID != "" && edge.CaseID != "" && edge.CaseID != origin.CaseID {
				continue
			}
		} else if edge.CaseVariant != "" {
			continue
		}
		siblings = append(siblings, edge)
	}
	return siblings
}
