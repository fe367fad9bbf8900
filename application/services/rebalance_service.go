package services

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"flowsync-core/domain/core/aggregates"
	"flowsync-core/domain/core/entities"
	"flowsync-core/domain/core/valueobjects"
	"flowsync-core/pkg/audit"
	"flowsync-core/pkg/distribution"
)

// RebalanceResult reports one rebalancing pass. Warnings cover situations
// the rebalancer resolved by clamping rather than failing, such as pinned
// values that already exceed the unit budget.
type RebalanceResult struct {
	Graph    *aggregates.FlowGraph
	Adjusted []string
	Warnings []string
}

// RebalanceService restores the sum-to-one contract among sibling edge
// probabilities, conditional branches, and case variant weights after one
// member changed. In normal mode it only redistributes the free members:
// slots pinned by an override flag or locked to an external source keep
// their value. Force mode redistributes everything and clears the mean
// override flags it writes over.
type RebalanceService struct {
	logger *zap.Logger
	sink   audit.Sink
}

// NewRebalanceService creates the service
func NewRebalanceService(logger *zap.Logger, sink audit.Sink) *RebalanceService {
	return &RebalanceService{logger: logger, sink: sink}
}

// RebalanceSiblings adjusts the probabilities of the edges sharing the
// origin's source node so the family sums to 1. The origin's own value is
// clamped and rounded but otherwise kept. A missing or parameterless origin
// is a no-op, not an error: the caller may be reacting to a sync that
// deleted the edge.
func (s *RebalanceService) RebalanceSiblings(ctx context.Context, graph *aggregates.FlowGraph, edgeRef string, force bool) (*RebalanceResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &RebalanceResult{Graph: graph.Clone()}
	origin := result.Graph.EdgeByRef(edgeRef)
	if origin == nil || origin.P == nil {
		s.logger.Warn("sibling rebalance skipped", zap.String("edge", edgeRef))
		return result, nil
	}

	origin.P.Mean = distribution.Round(distribution.Clamp01(origin.P.Mean))
	siblings := result.Graph.SiblingEdges(origin)

	slots := make([]*entities.ParamSlot, len(siblings))
	labels := make([]string, len(siblings))
	for i, sibling := range siblings {
		slots[i] = sibling.P
		labels[i] = sibling.UUID
	}

	adjusted, warnings := s.rebalanceSlots(slots, labels, origin.P.Mean, force)
	result.Adjusted = adjusted
	result.Warnings = warnings

	s.audit("REBALANCE_SIBLINGS", edgeRef, force, result)
	return result, nil
}

// RebalanceConditional adjusts the conditional branch with the given
// condition across the origin's sibling edges. Branches are matched by
// normalized condition string, so formatting differences between edges do
// not split a family.
func (s *RebalanceService) RebalanceConditional(ctx context.Context, graph *aggregates.FlowGraph, edgeRef, condition string, force bool) (*RebalanceResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &RebalanceResult{Graph: graph.Clone()}
	origin := result.Graph.EdgeByRef(edgeRef)
	if origin == nil {
		s.logger.Warn("conditional rebalance skipped", zap.String("edge", edgeRef))
		return result, nil
	}

	originEntry := findConditional(origin, condition)
	if originEntry == nil {
		s.logger.Warn("conditional rebalance skipped, no matching branch",
			zap.String("edge", edgeRef),
			zap.String("condition", condition))
		return result, nil
	}

	originEntry.P.Mean = distribution.Round(distribution.Clamp01(originEntry.P.Mean))

	var slots []*entities.ParamSlot
	var labels []string
	for _, sibling := range result.Graph.SiblingEdges(origin) {
		if entry := findConditional(sibling, condition); entry != nil {
			slots = append(slots, &entry.P)
			labels = append(labels, sibling.UUID)
		}
	}

	adjusted, warnings := s.rebalanceSlots(slots, labels, originEntry.P.Mean, force)
	result.Adjusted = adjusted
	result.Warnings = warnings

	s.audit("REBALANCE_CONDITIONAL", edgeRef, force, result)
	return result, nil
}

// RebalanceVariants adjusts the weights of a case node's variants around the
// named origin variant. Overridden weights are frozen in normal mode; force
// redistributes them too and clears the flag.
func (s *RebalanceService) RebalanceVariants(ctx context.Context, graph *aggregates.FlowGraph, nodeRef, originVariant string, force bool) (*RebalanceResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &RebalanceResult{Graph: graph.Clone()}
	node := result.Graph.NodeByRef(nodeRef)
	if node == nil || node.Case == nil || len(node.Case.Variants) == 0 {
		s.logger.Warn("variant rebalance skipped", zap.String("node", nodeRef))
		return result, nil
	}

	variants := node.Case.Variants
	originIdx := -1
	for i := range variants {
		if variants[i].Name == originVariant {
			originIdx = i
			break
		}
	}
	if originIdx < 0 {
		s.logger.Warn("variant rebalance skipped, unknown variant",
			zap.String("node", nodeRef),
			zap.String("variant", originVariant))
		return result, nil
	}

	variants[originIdx].Weight = distribution.Round(distribution.Clamp01(variants[originIdx].Weight))

	var free []int
	frozen := 0.0
	for i := range variants {
		if i == originIdx {
			continue
		}
		if variants[i].WeightOverridden && !force {
			frozen += variants[i].Weight
			continue
		}
		free = append(free, i)
	}

	remaining := 1 - variants[originIdx].Weight - frozen
	if remaining < 0 {
		if len(free) > 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"variant weights pinned to %.4f leave no budget; free variants set to 0", frozen))
		}
		remaining = 0
	}

	currentTotal := 0.0
	for _, i := range free {
		currentTotal += variants[i].Weight
	}
	distribution.ExactSum(len(free),
		func(j int) float64 { return variants[free[j]].Weight },
		func(j int, v float64) {
			variants[free[j]].Weight = v
			if force {
				variants[free[j]].WeightOverridden = false
			}
			result.Adjusted = append(result.Adjusted, variants[free[j]].Name)
		},
		remaining, currentTotal)

	if len(free) == 0 && math.Abs(variants[originIdx].Weight+frozen-1) > distribution.Tolerance {
		result.Warnings = append(result.Warnings,
			"all other variants are pinned; weights do not sum to 1")
	}

	s.audit("REBALANCE_VARIANTS", nodeRef, force, result)
	return result, nil
}

// rebalanceSlots redistributes 1-originMean across the given sibling slots.
// Returns the labels of the slots it wrote and any warnings.
func (s *RebalanceService) rebalanceSlots(slots []*entities.ParamSlot, labels []string, originMean float64, force bool) ([]string, []string) {
	var free []int
	frozen := 0.0
	for i, slot := range slots {
		if !force && (slot.Locked() || slot.MeanOverridden) {
			frozen += slot.Mean
			continue
		}
		free = append(free, i)
	}

	var adjusted []string
	var warnings []string

	remaining := 1 - originMean - frozen
	if remaining < 0 {
		if len(free) > 0 {
			warnings = append(warnings, fmt.Sprintf(
				"pinned siblings hold %.4f; free siblings set to 0", frozen))
		}
		remaining = 0
	}

	currentTotal := 0.0
	for _, i := range free {
		currentTotal += slots[i].Mean
	}
	distribution.ExactSum(len(free),
		func(j int) float64 { return slots[free[j]].Mean },
		func(j int, v float64) {
			slots[free[j]].Mean = v
			if force {
				slots[free[j]].MeanOverridden = false
			}
			adjusted = append(adjusted, labels[free[j]])
		},
		remaining, currentTotal)

	if len(free) == 0 && len(slots) > 0 && math.Abs(originMean+frozen-1) > distribution.Tolerance {
		warnings = append(warnings, "all siblings are pinned; probabilities do not sum to 1")
	}

	return adjusted, warnings
}

func findConditional(edge *entities.Edge, condition string) *entities.ConditionalEntry {
	for i := range edge.ConditionalP {
		if valueobjects.SameCondition(edge.ConditionalP[i].Condition, condition, valueobjects.NormalizeCondition) {
			return &edge.ConditionalP[i]
		}
	}
	return nil
}

func (s *RebalanceService) audit(operation, ref string, force bool, result *RebalanceResult) {
	entry := audit.NewEntry(operation, map[string]interface{}{
		"ref":      ref,
		"force":    force,
		"adjusted": len(result.Adjusted),
		"warnings": result.Warnings,
	})
	s.sink.Append(entry)
}
