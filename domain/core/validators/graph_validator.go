package validators

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"flowsync-core/domain/core/aggregates"
	"flowsync-core/domain/core/entities"
	"flowsync-core/pkg/distribution"
)

// Severity of a validation issue. Errors make a graph unsafe to persist;
// warnings describe drift the rebalancer can repair.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is one finding from a validation pass
type Issue struct {
	Severity string `json:"severity"`
	Path     string `json:"path"`
	Message  string `json:"message"`
}

// GraphValidator checks a flow graph for structural integrity and for
// probability drift. Struct-level constraints run through the validator
// tags on the entities; cross-entity rules are coded here.
type GraphValidator struct {
	validate *validator.Validate
}

// NewGraphValidator creates a validator
func NewGraphValidator() *GraphValidator {
	return &GraphValidator{validate: validator.New()}
}

// Validate returns every issue found in the graph, errors first is not
// guaranteed; callers filter by severity.
func (v *GraphValidator) Validate(graph *aggregates.FlowGraph) []Issue {
	var issues []Issue

	issues = append(issues, v.checkNodes(graph)...)
	issues = append(issues, v.checkEdges(graph)...)
	issues = append(issues, v.checkSiblingSums(graph)...)
	issues = append(issues, v.checkVariantSums(graph)...)

	return issues
}

// HasErrors reports whether any issue is severity error
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (v *GraphValidator) checkNodes(graph *aggregates.FlowGraph) []Issue {
	var issues []Issue
	seenUUID := map[string]bool{}
	seenID := map[string]bool{}

	for i := range graph.Nodes {
		node := &graph.Nodes[i]
		path := fmt.Sprintf("nodes[%d]", i)

		if err := v.validate.Struct(node); err != nil {
			issues = append(issues, Issue{SeverityError, path, err.Error()})
		}
		if seenUUID[node.UUID] {
			issues = append(issues, Issue{SeverityError, path, "duplicate node uuid " + node.UUID})
		}
		seenUUID[node.UUID] = true
		if node.ID != "" {
			if seenID[node.ID] {
				issues = append(issues, Issue{SeverityError, path, "duplicate node id " + node.ID})
			}
			seenID[node.ID] = true
		}

		issues = append(issues, checkProbabilitySlot(node.P, path+".p")...)
	}
	return issues
}

func (v *GraphValidator) checkEdges(graph *aggregates.FlowGraph) []Issue {
	var issues []Issue
	seenUUID := map[string]bool{}

	for i := range graph.Edges {
		edge := &graph.Edges[i]
		path := fmt.Sprintf("edges[%d]", i)

		if err := v.validate.Struct(edge); err != nil {
			issues = append(issues, Issue{SeverityError, path, err.Error()})
		}
		if seenUUID[edge.UUID] {
			issues = append(issues, Issue{SeverityError, path, "duplicate edge uuid " + edge.UUID})
		}
		seenUUID[edge.UUID] = true

		if graph.NodeByRef(edge.From) == nil {
			issues = append(issues, Issue{SeverityError, path, "edge references unknown source node " + edge.From})
		}
		if graph.NodeByRef(edge.To) == nil {
			issues = append(issues, Issue{SeverityError, path, "edge references unknown target node " + edge.To})
		}

		issues = append(issues, checkProbabilitySlot(edge.P, path+".p")...)
		for j := range edge.ConditionalP {
			issues = append(issues, checkProbabilitySlot(&edge.ConditionalP[j].P,
				fmt.Sprintf("%s.conditional_p[%d].p", path, j))...)
		}
	}
	return issues
}

// checkSiblingSums warns on each outgoing family whose probabilities have
// drifted off 1. Families are grouped the way the rebalancer groups them, so
// a warning here always has a rebalance that fixes it.
func (v *GraphValidator) checkSiblingSums(graph *aggregates.FlowGraph) []Issue {
	var issues []Issue
	for i := range graph.Nodes {
		node := &graph.Nodes[i]
		sums := map[string]float64{}
		counts := map[string]int{}
		for _, edge := range graph.OutgoingEdges(node) {
			if edge.P == nil {
				continue
			}
			sums[edge.CaseVariant] += edge.P.Mean
			counts[edge.CaseVariant]++
		}
		for variant, sum := range sums {
			if counts[variant] == 0 {
				continue
			}
			if math.Abs(sum-1) > distribution.Tolerance {
				label := node.ID
				if label == "" {
					label = node.UUID
				}
				msg := fmt.Sprintf("outgoing probabilities of %s sum to %.4f", label, sum)
				if variant != "" {
					msg = fmt.Sprintf("outgoing probabilities of %s (variant %s) sum to %.4f", label, variant, sum)
				}
				issues = append(issues, Issue{SeverityWarning, "nodes[" + node.UUID + "]", msg})
			}
		}
	}
	return issues
}

func (v *GraphValidator) checkVariantSums(graph *aggregates.FlowGraph) []Issue {
	var issues []Issue
	for i := range graph.Nodes {
		node := &graph.Nodes[i]
		if node.Case == nil || len(node.Case.Variants) == 0 {
			continue
		}
		sum := 0.0
		for _, variant := range node.Case.Variants {
			sum += variant.Weight
		}
		if math.Abs(sum-1) > distribution.Tolerance {
			issues = append(issues, Issue{
				SeverityWarning,
				fmt.Sprintf("nodes[%d].case.variants", i),
				fmt.Sprintf("variant weights sum to %.4f", sum),
			})
		}
	}
	return issues
}

func checkProbabilitySlot(slot *entities.ParamSlot, path string) []Issue {
	if slot == nil {
		return nil
	}
	if slot.Mean < 0 || slot.Mean > 1 {
		return []Issue{{SeverityError, path, fmt.Sprintf("probability %.4f outside [0, 1]", slot.Mean)}}
	}
	return nil
}
