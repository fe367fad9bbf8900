package aggregates

import (
	"flowsync-core/domain/core/entities"
	"flowsync-core/domain/core/valueobjects"
	"flowsync-core/pkg/distribution"
	pkgerrors "flowsync-core/pkg/errors"
)

// CreateEdge adds a directed edge between two existing nodes and returns the
// new graph plus a pointer to the created edge inside it. The default
// probability is 1.0 for the first outgoing edge, otherwise max(0, 1 − Σ
// existing siblings), so inserting an edge never silently breaks the sum
// invariant.
func (g *FlowGraph) CreateEdge(fromRef, toRef string) (*FlowGraph, *entities.Edge, error) {
	out := g.Clone()

	from := out.NodeByRef(fromRef)
	if from == nil {
		return nil, nil, pkgerrors.NewNotFoundError("source node " + fromRef)
	}
	to := out.NodeByRef(toRef)
	if to == nil {
		return nil, nil, pkgerrors.NewNotFoundError("target node " + toRef)
	}

	defaultMean := 1.0
	existing := 0.0
	first := true
	for _, sibling := range out.OutgoingEdges(from) {
		if sibling.P == nil {
			continue
		}
		first = false
		existing += sibling.P.Mean
	}
	if !first {
		defaultMean = distribution.Round(distribution.Clamp01(1 - existing))
	}

	edge := entities.Edge{
		UUID: valueobjects.NewUUID(),
		ID:   valueobjects.UniqueID(valueobjects.EdgeID(from.ID, to.ID), out.HasEdgeID),
		From: from.UUID,
		To:   to.UUID,
		P:    &entities.ParamSlot{Mean: defaultMean},
	}
	out.Edges = append(out.Edges, edge)

	return out, &out.Edges[len(out.Edges)-1], nil
}

// DeleteNode removes the node and every edge touching it. Edges referencing
// the node by human id instead of uuid are legacy but still recognized.
func (g *FlowGraph) DeleteNode(ref string) (*FlowGraph, error) {
	out := g.Clone()

	node := out.NodeByRef(ref)
	if node == nil {
		return nil, pkgerrors.NewNotFoundError("node " + ref)
	}
	uuid, id := node.UUID, node.ID

	nodes := out.Nodes[:0]
	for i := range out.Nodes {
		if out.Nodes[i].UUID != uuid {
			nodes = append(nodes, out.Nodes[i])
		}
	}
	out.Nodes = nodes

	edges := out.Edges[:0]
	for i := range out.Edges {
		if !out.Edges[i].ReferencesNode(uuid, id) {
			edges = append(edges, out.Edges[i])
		}
	}
	out.Edges = edges

	return out, nil
}

// RenameNodeID reassigns a node's human-readable id and propagates the rename
// through everything derived from it: the label (unless overridden), every
// query and condition string containing the old id as a standalone token, and
// the ids of dependent edges, de-duplicating any collisions.
//
// For a node that never had an id, occurrences of its uuid are rewritten
// instead, covering first-time id assignment.
func (g *FlowGraph) RenameNodeID(ref, newID string) (*FlowGraph, error) {
	if newID == "" {
		return nil, pkgerrors.NewValidationError("new node id cannot be empty")
	}

	out := g.Clone()

	node := out.NodeByRef(ref)
	if node == nil {
		return nil, pkgerrors.NewNotFoundError("node " + ref)
	}
	for i := range out.Nodes {
		if out.Nodes[i].UUID != node.UUID && out.Nodes[i].ID == newID {
			return nil, pkgerrors.NewConflictError("node id already in use: " + newID)
		}
	}

	oldToken := node.ID
	if oldToken == "" {
		oldToken = node.UUID
	}
	if oldToken == newID {
		return out, nil
	}

	node.ID = newID
	if !node.LabelOverridden {
		node.Label = valueobjects.LabelFromID(newID)
	}

	out.rewriteToken(oldToken, newID)
	out.regenerateEdgeIDs(node, oldToken)

	return out, nil
}

// regenerateEdgeIDs recomputes the derived id of every edge touching the
// renamed node. Edge ids are compound tokens ("from-to-to"), so the
// word-boundary replace deliberately leaves them alone; ids that still follow
// the derived pattern are rebuilt from the endpoints' current ids instead,
// and collisions introduced by the rename pick up a numeric suffix. Ids a
// user customized away from the pattern are preserved.
func (g *FlowGraph) regenerateEdgeIDs(node *entities.Node, oldID string) {
	for i := range g.Edges {
		edge := &g.Edges[i]
		if edge.ID == "" || !edge.ReferencesNode(node.UUID, node.ID) {
			continue
		}
		from := g.NodeByRef(edge.From)
		to := g.NodeByRef(edge.To)
		if from == nil || to == nil {
			continue
		}

		derivedFrom, derivedTo := from.ID, to.ID
		if from.UUID == node.UUID {
			derivedFrom = oldID
		}
		if to.UUID == node.UUID {
			derivedTo = oldID
		}
		if edge.ID != valueobjects.EdgeID(derivedFrom, derivedTo) {
			continue
		}

		renamed := valueobjects.EdgeID(from.ID, to.ID)
		if renamed == edge.ID {
			continue
		}
		if g.HasEdgeID(renamed) {
			renamed = valueobjects.UniqueID(renamed, g.HasEdgeID)
		}
		edge.ID = renamed
	}
}

// rewriteToken rewrites standalone occurrences of old in every dependent
// string: node queries, edge endpoint references held in human-id form, edge
// ids, and conditional queries/conditions.
func (g *FlowGraph) rewriteToken(old, new string) {
	for i := range g.Nodes {
		node := &g.Nodes[i]
		if node.Query != "" && !node.QueryOverridden {
			node.Query = valueobjects.ReplaceIDToken(node.Query, old, new)
		}
	}

	for i := range g.Edges {
		edge := &g.Edges[i]
		if edge.From == old {
			edge.From = new
		}
		if edge.To == old {
			edge.To = new
		}
		for j := range edge.ConditionalP {
			entry := &edge.ConditionalP[j]
			entry.Condition = valueobjects.ReplaceIDToken(entry.Condition, old, new)
			if !entry.QueryOverridden {
				entry.Query = valueobjects.ReplaceIDToken(entry.Query, old, new)
			}
		}
	}
}

// PasteSubgraph merges a copied subgraph into the graph. Every pasted node
// and edge receives fresh uuids and ids, internal references are remapped
// through the new identity mapping, edges whose endpoint was not part of the
// pasted set are dropped, and node positions are offset by the given delta.
func (g *FlowGraph) PasteSubgraph(sub *FlowGraph, offsetX, offsetY float64) (*FlowGraph, error) {
	if sub == nil || len(sub.Nodes) == 0 {
		return nil, pkgerrors.NewValidationError("nothing to paste")
	}

	out := g.Clone()

	uuidMap := make(map[string]string, len(sub.Nodes))
	idMap := make(map[string]string, len(sub.Nodes))

	for i := range sub.Nodes {
		pasted := *sub.Nodes[i].Clone()
		oldUUID, oldID := pasted.UUID, pasted.ID

		pasted.UUID = valueobjects.NewUUID()
		if oldID != "" {
			if out.HasNodeID(oldID) {
				pasted.ID = valueobjects.CopyID(oldID, out.HasNodeID)
			}
			idMap[oldID] = pasted.ID
		}
		uuidMap[oldUUID] = pasted.UUID

		pasted.Position.X += offsetX
		pasted.Position.Y += offsetY

		out.Nodes = append(out.Nodes, pasted)
	}

	remapRef := func(ref string) (string, bool) {
		if mapped, ok := uuidMap[ref]; ok {
			return mapped, true
		}
		if mapped, ok := idMap[ref]; ok {
			return mapped, true
		}
		return "", false
	}

	for i := range sub.Edges {
		pasted := *sub.Edges[i].Clone()

		from, okFrom := remapRef(pasted.From)
		to, okTo := remapRef(pasted.To)
		if !okFrom || !okTo {
			// Endpoint outside the pasted set: the edge is dangling.
			continue
		}
		origFrom := sub.NodeByRef(pasted.From)
		origTo := sub.NodeByRef(pasted.To)
		pasted.From = from
		pasted.To = to
		pasted.UUID = valueobjects.NewUUID()
		if pasted.ID != "" {
			// Derived ids are rebuilt from the remapped node ids; custom ids
			// survive with a suffix when they collide.
			if origFrom != nil && origTo != nil && pasted.ID == valueobjects.EdgeID(origFrom.ID, origTo.ID) {
				pasted.ID = valueobjects.EdgeID(idMap[origFrom.ID], idMap[origTo.ID])
			}
			if out.HasEdgeID(pasted.ID) {
				pasted.ID = valueobjects.UniqueID(pasted.ID, out.HasEdgeID)
			}
		}
		for j := range pasted.ConditionalP {
			entry := &pasted.ConditionalP[j]
			entry.Condition = out.remapStrings(entry.Condition, uuidMap, idMap)
			entry.Query = out.remapStrings(entry.Query, uuidMap, idMap)
		}

		out.Edges = append(out.Edges, pasted)
	}

	for i := len(out.Nodes) - len(sub.Nodes); i < len(out.Nodes); i++ {
		node := &out.Nodes[i]
		node.Query = out.remapStrings(node.Query, uuidMap, idMap)
	}

	return out, nil
}

func (g *FlowGraph) remapStrings(s string, uuidMap, idMap map[string]string) string {
	for old, new := range idMap {
		s = valueobjects.ReplaceIDToken(s, old, new)
	}
	for old, new := range uuidMap {
		s = valueobjects.ReplaceIDToken(s, old, new)
	}
	return s
}
