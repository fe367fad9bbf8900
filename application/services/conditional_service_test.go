package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flowsync-core/domain/core/entities"
	"flowsync-core/pkg/audit"
)

func newPropagator() (*ConditionalService, *audit.MemorySink) {
	sink := audit.NewMemorySink()
	return NewConditionalService(zap.NewNop(), sink), sink
}

func branch(condition string, mean float64) entities.ConditionalEntry {
	return entities.ConditionalEntry{Condition: condition, P: entities.ParamSlot{Mean: mean}}
}

func TestPropagate_AddsMissingBranchToSiblings(t *testing.T) {
	svc, sink := newPropagator()
	graph := fanout(0.5, 0.3, 0.2)
	graph.Edges[0].ConditionalP = []entities.ConditionalEntry{
		branch("device = mobile", 0.7),
	}

	result, err := svc.Propagate(context.Background(), graph, "e-ab", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)

	ac := result.Graph.EdgeByRef("e-ac")
	require.Len(t, ac.ConditionalP, 1)
	assert.Equal(t, "device = mobile", ac.ConditionalP[0].Condition)
	assert.Equal(t, 0.3, ac.ConditionalP[0].P.Mean, "new branch seeds from the sibling's base probability")

	// Input graph untouched.
	assert.Empty(t, graph.Edges[1].ConditionalP)

	require.Len(t, sink.Entries(), 1)
	assert.Equal(t, "PROPAGATE_CONDITIONALS", sink.Entries()[0].Operation)
}

func TestPropagate_ExistingBranchKeepsItsProbability(t *testing.T) {
	svc, _ := newPropagator()
	graph := fanout(0.5, 0.3, 0.2)
	graph.Edges[0].ConditionalP = []entities.ConditionalEntry{
		{Condition: "device = mobile", P: entities.ParamSlot{Mean: 0.7}, Colour: "#ff0000"},
	}
	// Sibling already has the branch, spelled differently.
	graph.Edges[1].ConditionalP = []entities.ConditionalEntry{
		branch("mobile=device", 0.45),
	}

	result, err := svc.Propagate(context.Background(), graph, "e-ab", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added, "only the branchless sibling gains one")

	ac := result.Graph.EdgeByRef("e-ac")
	require.Len(t, ac.ConditionalP, 1)
	assert.Equal(t, 0.45, ac.ConditionalP[0].P.Mean)
	assert.Equal(t, "#ff0000", ac.ConditionalP[0].Colour, "colour mirrors to matched branches")
}

func TestPropagate_RenamePreservesSiblingProbabilities(t *testing.T) {
	svc, _ := newPropagator()
	graph := fanout(0.5, 0.3, 0.2)
	graph.Edges[0].ConditionalP = []entities.ConditionalEntry{
		branch("channel = paid", 0.7),
	}
	graph.Edges[1].ConditionalP = []entities.ConditionalEntry{
		branch("channel = organic", 0.25),
	}
	graph.Edges[2].ConditionalP = []entities.ConditionalEntry{
		branch("channel = organic", 0.35),
	}

	result, err := svc.Propagate(context.Background(), graph, "e-ab",
		[]string{"channel = organic"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Renamed)
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 0, result.Removed)

	ac := result.Graph.EdgeByRef("e-ac")
	require.Len(t, ac.ConditionalP, 1)
	assert.Equal(t, "channel = paid", ac.ConditionalP[0].Condition)
	assert.Equal(t, 0.25, ac.ConditionalP[0].P.Mean, "rename keeps the sibling's own value")
}

func TestPropagate_RemovesDroppedBranches(t *testing.T) {
	svc, _ := newPropagator()
	graph := fanout(0.5, 0.3, 0.2)
	graph.Edges[0].ConditionalP = []entities.ConditionalEntry{
		branch("device = mobile", 0.7),
	}
	graph.Edges[1].ConditionalP = []entities.ConditionalEntry{
		branch("device = mobile", 0.4),
		branch("device = desktop", 0.6),
	}

	result, err := svc.Propagate(context.Background(), graph, "e-ab",
		[]string{"device = mobile", "device = desktop"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)

	ac := result.Graph.EdgeByRef("e-ac")
	require.Len(t, ac.ConditionalP, 1)
	assert.Equal(t, "device = mobile", ac.ConditionalP[0].Condition)
}

func TestPropagate_AddAndRemoveAreNotARename(t *testing.T) {
	svc, _ := newPropagator()
	graph := fanout(0.5, 0.3, 0.2)
	// Origin previously had mobile and desktop; desktop was removed and
	// tablet added at a different position, so neither survivor pairs up
	// positionally and no rename is inferred.
	graph.Edges[0].ConditionalP = []entities.ConditionalEntry{
		branch("device = tablet", 0.2),
		branch("device = mobile", 0.5),
	}
	graph.Edges[1].ConditionalP = []entities.ConditionalEntry{
		branch("device = mobile", 0.4),
		branch("device = desktop", 0.6),
	}

	result, err := svc.Propagate(context.Background(), graph, "e-ab",
		[]string{"device = mobile", "device = desktop"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Renamed)
	assert.Equal(t, 1, result.Removed, "desktop branch dropped on the sibling")

	ac := result.Graph.EdgeByRef("e-ac")
	require.Len(t, ac.ConditionalP, 2)
	assert.Equal(t, "device = mobile", ac.ConditionalP[0].Condition)
	assert.Equal(t, 0.4, ac.ConditionalP[0].P.Mean, "unchanged branch untouched")
	assert.Equal(t, "device = tablet", ac.ConditionalP[1].Condition)
	assert.Equal(t, 0.3, ac.ConditionalP[1].P.Mean, "new branch seeds from the base probability")
}

func TestPropagate_MissingEdgeIsNoOp(t *testing.T) {
	svc, _ := newPropagator()
	graph := fanout(0.5, 0.3, 0.2)

	result, err := svc.Propagate(context.Background(), graph, "nope", nil)
	require.NoError(t, err)
	assert.Zero(t, result.Added+result.Renamed+result.Removed)
}
