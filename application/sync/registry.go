package sync

import (
	"fmt"

	pkgerrors "flowsync-core/pkg/errors"
)

// Key identifies one rule list in the registry
type Key struct {
	Direction      Direction
	Operation      Operation
	SubDestination SubDestination
}

// Registry holds the ordered rule lists, built once at startup and immutable
// thereafter. A lookup miss is a hard configuration error: a missing mapping
// table is a programming error, not a data condition.
type Registry struct {
	rules map[Key][]Rule
}

// NewRegistry builds the registry with the default mapping tables
func NewRegistry() *Registry {
	r := &Registry{rules: map[Key][]Rule{}}
	r.registerParameterMappings()
	r.registerCaseMappings()
	r.registerNodeMappings()
	r.registerContextMappings()
	r.registerEventMappings()
	return r
}

// Rules returns the rule list for the given key
func (r *Registry) Rules(direction Direction, operation Operation, sub SubDestination) ([]Rule, error) {
	rules, ok := r.rules[Key{direction, operation, sub}]
	if !ok {
		return nil, pkgerrors.NewConfigurationError(fmt.Sprintf(
			"no mapping registered for %s/%s/%s", direction, operation, sub))
	}
	return rules, nil
}

func (r *Registry) register(direction Direction, operation Operation, sub SubDestination, rules []Rule) {
	key := Key{direction, operation, sub}
	if _, exists := r.rules[key]; exists {
		panic(fmt.Sprintf("duplicate mapping registration for %s/%s/%s", direction, operation, sub))
	}
	r.rules[key] = rules
}

// Parameter mappings move a single probability/cost parameter between an
// edge (or node) document, a parameter file, and an external analytics feed.
func (r *Registry) registerParameterMappings() {
	// Parameter file -> graph slot.
	fileToGraphUpdate := []Rule{
		{SourceField: "values[latest].mean", TargetField: "p.mean", Transform: TransformClamp01Round, OverrideFlag: "p.mean_overridden"},
		{SourceField: "values[latest].stdev", TargetField: "p.stdev", Transform: TransformRound, OverrideFlag: "p.stdev_overridden"},
		{SourceField: "distribution", TargetField: "p.distribution", OverrideFlag: "p.distribution_overridden"},
		{SourceField: "values[latest].n", TargetField: "p.evidence.n"},
		{SourceField: "values[latest].k", TargetField: "p.evidence.k"},
		{SourceField: "values[latest].window_from", TargetField: "p.evidence.window_from"},
		{SourceField: "values[latest].window_to", TargetField: "p.evidence.window_to"},
		{SourceField: "values[latest].source", TargetField: "p.evidence.source"},
		{SourceField: "connection", TargetField: "p.connection", OverrideFlag: "p.connection_overridden"},
		{SourceField: "source", TargetField: "p.data_source"},
	}
	r.register(DirectionFileToGraph, OperationUpdate, SubDestParameter, fileToGraphUpdate)

	// CREATE additionally binds the slot to the file.
	r.register(DirectionFileToGraph, OperationCreate, SubDestParameter, append([]Rule{
		{SourceField: "id", TargetField: "p.parameter_id"},
	}, fileToGraphUpdate...))

	// File deleted: clear the slot's bindings so it stops reporting as
	// locked.
	r.register(DirectionFileToGraph, OperationDelete, SubDestParameter, []Rule{
		{TargetField: "p.parameter_id", Transform: TransformClear},
		{TargetField: "p.data_source", Transform: TransformClear},
		{TargetField: "p.connection", Transform: TransformClear, OverrideFlag: "p.connection_overridden"},
	})

	// Graph slot -> parameter file (in-place, newest history entry).
	r.register(DirectionGraphToFile, OperationUpdate, SubDestParameter, []Rule{
		{SourceField: "p.mean", TargetField: "values[latest].mean", Transform: TransformClamp01Round, Condition: ConditionTargetHasValues},
		{SourceField: "p.stdev", TargetField: "values[latest].stdev", Transform: TransformRound, Condition: ConditionTargetHasValues},
		{SourceField: "p.distribution", TargetField: "distribution"},
		{TargetField: "updated_at", Transform: TransformNowISO},
	})

	// Graph slot -> parameter file (append a dated history entry).
	r.register(DirectionGraphToFile, OperationAppend, SubDestParameter, []Rule{
		{SourceField: "p", TargetField: "values[]", Transform: TransformHistoryEntry},
		{TargetField: "updated_at", Transform: TransformNowISO},
	})

	// External analytics feed -> graph slot.
	r.register(DirectionExternalToGraph, OperationUpdate, SubDestParameter, []Rule{
		{TargetField: "p.mean", Transform: TransformMeanFromCounts, OverrideFlag: "p.mean_overridden", Condition: ConditionSourceHasCounts},
		{SourceField: "n", TargetField: "p.evidence.n", Condition: ConditionSourceHasCounts},
		{SourceField: "k", TargetField: "p.evidence.k", Condition: ConditionSourceHasCounts},
		{SourceField: "window_from", TargetField: "p.evidence.window_from"},
		{SourceField: "window_to", TargetField: "p.evidence.window_to"},
		{SourceField: "source", TargetField: "p.data_source"},
	})

	// External analytics feed -> parameter file.
	r.register(DirectionExternalToFile, OperationAppend, SubDestParameter, []Rule{
		{TargetField: "values[]", Transform: TransformCountsEntry, Condition: ConditionSourceHasCounts},
		{TargetField: "updated_at", Transform: TransformNowISO},
	})

	// Graph -> graph (sync between two versions of the same edge, e.g.
	// after a paste or between chart revisions).
	r.register(DirectionGraphInternal, OperationUpdate, SubDestParameter, []Rule{
		{SourceField: "p.mean", TargetField: "p.mean", Transform: TransformClamp01Round, OverrideFlag: "p.mean_overridden"},
		{SourceField: "p.stdev", TargetField: "p.stdev", OverrideFlag: "p.stdev_overridden"},
		{SourceField: "p.distribution", TargetField: "p.distribution", OverrideFlag: "p.distribution_overridden"},
		{SourceField: "p.connection", TargetField: "p.connection", OverrideFlag: "p.connection_overridden"},
		{SourceField: "p.evidence", TargetField: "p.evidence"},
		{SourceField: "p.data_source", TargetField: "p.data_source"},
		{SourceField: "p.parameter_id", TargetField: "p.parameter_id"},
		{SourceField: "p.mean_overridden", TargetField: "p.mean_overridden", PermissionCopy: true},
		{SourceField: "p.stdev_overridden", TargetField: "p.stdev_overridden", PermissionCopy: true},
		{SourceField: "p.distribution_overridden", TargetField: "p.distribution_overridden", PermissionCopy: true},
		{SourceField: "p.connection_overridden", TargetField: "p.connection_overridden", PermissionCopy: true},
	})
}

// Case mappings move experiment variants/weights between a case node, a case
// file, and the experiment platform.
func (r *Registry) registerCaseMappings() {
	r.register(DirectionFileToGraph, OperationUpdate, SubDestCase, []Rule{
		{SourceField: "id", TargetField: "case.id", Condition: ConditionTargetHasCase},
		{SourceField: "status", TargetField: "case.status", Condition: ConditionTargetHasCase},
		{SourceField: "connection", TargetField: "case.connection", Condition: ConditionTargetHasCase},
		{SourceField: "schedules[latest]", TargetField: "case.variants", Transform: TransformMergeVariantWeight, Condition: ConditionTargetHasCase},
	})

	r.register(DirectionGraphToFile, OperationUpdate, SubDestCase, []Rule{
		{SourceField: "case.status", TargetField: "status"},
		{SourceField: "case.connection", TargetField: "connection"},
		{TargetField: "updated_at", Transform: TransformNowISO},
	})

	r.register(DirectionGraphToFile, OperationAppend, SubDestCase, []Rule{
		{SourceField: "case", TargetField: "schedules[]", Transform: TransformScheduleEntry},
		{TargetField: "updated_at", Transform: TransformNowISO},
	})
}

// Node mappings move descriptive fields between a node, the node-registry
// file, and another graph revision.
func (r *Registry) registerNodeMappings() {
	r.register(DirectionFileToGraph, OperationUpdate, SubDestNode, []Rule{
		{SourceField: "label", TargetField: "label", OverrideFlag: "label_overridden"},
		{SourceField: "description", TargetField: "description", OverrideFlag: "description_overridden"},
		{SourceField: "query", TargetField: "query", OverrideFlag: "query_overridden"},
	})

	r.register(DirectionGraphToFile, OperationUpdate, SubDestNode, []Rule{
		{SourceField: "label", TargetField: "label"},
		{SourceField: "description", TargetField: "description"},
		{SourceField: "query", TargetField: "query"},
		{SourceField: "uuid", TargetField: "uuid"},
		{TargetField: "updated_at", Transform: TransformNowISO},
	})

	r.register(DirectionGraphInternal, OperationUpdate, SubDestNode, []Rule{
		{SourceField: "label", TargetField: "label", OverrideFlag: "label_overridden"},
		{SourceField: "description", TargetField: "description", OverrideFlag: "description_overridden"},
		{SourceField: "query", TargetField: "query", OverrideFlag: "query_overridden"},
		{SourceField: "label_overridden", TargetField: "label_overridden", PermissionCopy: true},
		{SourceField: "description_overridden", TargetField: "description_overridden", PermissionCopy: true},
		{SourceField: "query_overridden", TargetField: "query_overridden", PermissionCopy: true},
	})
}

// Context mappings pull experiment-platform state onto a case node.
func (r *Registry) registerContextMappings() {
	r.register(DirectionExternalToGraph, OperationUpdate, SubDestContext, []Rule{
		{SourceField: "experiment_id", TargetField: "case.id", Condition: ConditionTargetHasCase},
		{SourceField: "status", TargetField: "case.status", Condition: ConditionTargetHasCase},
		{SourceField: "weights", TargetField: "case.variants", Transform: TransformMergeVariantWeight, Condition: ConditionTargetHasCase},
	})
}

// Event mappings pull analytics event counts onto a node's own parameter
// slot and into the backing file.
func (r *Registry) registerEventMappings() {
	r.register(DirectionExternalToGraph, OperationUpdate, SubDestEvent, []Rule{
		{TargetField: "p.mean", Transform: TransformMeanFromCounts, OverrideFlag: "p.mean_overridden", Condition: ConditionSourceHasCounts},
		{SourceField: "n", TargetField: "p.evidence.n", Condition: ConditionSourceHasCounts},
		{SourceField: "k", TargetField: "p.evidence.k", Condition: ConditionSourceHasCounts},
		{SourceField: "window_from", TargetField: "p.evidence.window_from"},
		{SourceField: "window_to", TargetField: "p.evidence.window_to"},
		{SourceField: "source", TargetField: "p.data_source"},
	})

	r.register(DirectionExternalToFile, OperationAppend, SubDestEvent, []Rule{
		{TargetField: "values[]", Transform: TransformCountsEntry, Condition: ConditionSourceHasCounts},
		{TargetField: "updated_at", Transform: TransformNowISO},
	})
}
