package services

import (
	"context"

	"go.uber.org/zap"

	"flowsync-core/domain/core/aggregates"
	"flowsync-core/domain/core/entities"
	"flowsync-core/domain/core/valueobjects"
	"flowsync-core/pkg/audit"
)

// PropagateResult reports what conditional mirroring changed on the origin's
// siblings.
type PropagateResult struct {
	Graph   *aggregates.FlowGraph
	Added   int
	Renamed int
	Removed int
}

// ConditionalService keeps the conditional branch sets of sibling edges in
// step. Every sibling of an edge must carry the same set of conditions so
// each branch family can be normalized on its own; when a user edits the
// branches of one edge the change is mirrored to the others. Branches are
// matched across edges by normalized condition string, so each sibling keeps
// its own probabilities.
type ConditionalService struct {
	logger *zap.Logger
	sink   audit.Sink
}

// NewConditionalService creates the service
func NewConditionalService(logger *zap.Logger, sink audit.Sink) *ConditionalService {
	return &ConditionalService{logger: logger, sink: sink}
}

// Propagate mirrors the origin edge's conditional branches onto its
// siblings. previousConditions is the origin's condition list before the
// edit, in order; comparing it with the current list distinguishes a renamed
// condition (sibling branch keeps its probability under the new name) from a
// removed-plus-added pair. Pass nil when the origin was not edited in place,
// e.g. after a paste.
func (s *ConditionalService) Propagate(ctx context.Context, graph *aggregates.FlowGraph, edgeRef string, previousConditions []string) (*PropagateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &PropagateResult{Graph: graph.Clone()}
	origin := result.Graph.EdgeByRef(edgeRef)
	if origin == nil {
		s.logger.Warn("conditional propagation skipped", zap.String("edge", edgeRef))
		return result, nil
	}

	renames := detectRenames(previousConditions, origin.ConditionalP)
	removed := removedConditions(previousConditions, origin.ConditionalP, renames)

	for _, sibling := range result.Graph.SiblingEdges(origin) {
		s.propagateToSibling(origin, sibling, renames, removed, result)
	}

	entry := audit.NewEntry("PROPAGATE_CONDITIONALS", map[string]interface{}{
		"edge":    edgeRef,
		"added":   result.Added,
		"renamed": result.Renamed,
		"removed": result.Removed,
	})
	s.sink.Append(entry)
	return result, nil
}

func (s *ConditionalService) propagateToSibling(origin, sibling *entities.Edge, renames map[string]string, removed []string, result *PropagateResult) {
	// Renames first, so the adds below do not see the old-named branch as
	// missing its new counterpart.
	for oldCond, newCond := range renames {
		if entry := findConditional(sibling, oldCond); entry != nil {
			entry.Condition = newCond
			result.Renamed++
		}
	}

	for i := range origin.ConditionalP {
		originEntry := &origin.ConditionalP[i]
		entry := findConditional(sibling, originEntry.Condition)
		if entry == nil {
			sibling.ConditionalP = append(sibling.ConditionalP, entities.ConditionalEntry{
				Condition: originEntry.Condition,
				Colour:    originEntry.Colour,
				P:         entities.ParamSlot{Mean: defaultBranchMean(sibling)},
			})
			result.Added++
			continue
		}
		entry.Colour = originEntry.Colour
	}

	for _, cond := range removed {
		for i := range sibling.ConditionalP {
			if valueobjects.SameCondition(sibling.ConditionalP[i].Condition, cond, valueobjects.NormalizeCondition) {
				sibling.ConditionalP = append(sibling.ConditionalP[:i], sibling.ConditionalP[i+1:]...)
				result.Removed++
				break
			}
		}
	}
}

// detectRenames pairs each previous condition with the current condition at
// the same position when both changed names and neither appears elsewhere in
// the other list. Returns old -> new.
func detectRenames(previous []string, current []entities.ConditionalEntry) map[string]string {
	renames := map[string]string{}
	for i, old := range previous {
		if i >= len(current) {
			break
		}
		cur := current[i].Condition
		if valueobjects.SameCondition(old, cur, valueobjects.NormalizeCondition) {
			continue
		}
		if containsCondition(current, old) || previousContains(previous, cur, i) {
			continue
		}
		renames[old] = cur
	}
	return renames
}

// removedConditions lists previous conditions absent from the current set
// and not accounted for by a rename.
func removedConditions(previous []string, current []entities.ConditionalEntry, renames map[string]string) []string {
	var removed []string
	for _, old := range previous {
		if _, renamed := renames[old]; renamed {
			continue
		}
		if !containsCondition(current, old) {
			removed = append(removed, old)
		}
	}
	return removed
}

func containsCondition(entries []entities.ConditionalEntry, condition string) bool {
	for i := range entries {
		if valueobjects.SameCondition(entries[i].Condition, condition, valueobjects.NormalizeCondition) {
			return true
		}
	}
	return false
}

func previousContains(previous []string, condition string, skip int) bool {
	for i, p := range previous {
		if i == skip {
			continue
		}
		if valueobjects.SameCondition(p, condition, valueobjects.NormalizeCondition) {
			return true
		}
	}
	return false
}

// defaultBranchMean seeds a newly mirrored branch with the sibling's own
// base probability, falling back to an even prior.
func defaultBranchMean(sibling *entities.Edge) float64 {
	if sibling.P != nil {
		return sibling.P.Mean
	}
	return 0.5
}
