package sync

import (
	"fmt"

	"flowsync-core/domain/documents"
	"flowsync-core/pkg/distribution"
	"flowsync-core/pkg/utils"
)

// Rule is one field mapping. Rules are plain data: conditions and transforms
// are referenced by name and dispatched through package registries, so a rule
// table can be serialized or inspected without carrying closures.
type Rule struct {
	SourceField string
	TargetField string

	// Condition names a ConditionFunc; empty means "always applies".
	Condition ConditionID
	// Transform names a TransformFunc; empty means "copy verbatim".
	Transform TransformID

	// OverrideFlag is the path of the boolean on the target that pins the
	// field against automated updates.
	OverrideFlag string

	// PermissionCopy marks a rule that copies an *_overridden flag itself.
	// Such rules only run when the caller opts in.
	PermissionCopy bool
}

// ConditionID names a registered condition
type ConditionID string

// TransformID names a registered transform
type TransformID string

// ConditionFunc decides whether a rule applies to this source/target pair
type ConditionFunc func(source, target documents.Document) bool

// TransformFunc derives the value to write. It receives the raw source value
// plus both full documents so it can compute derived values. Returning
// ok=false means "insufficient data to update", which skips the rule;
// that is distinct from updating to a nil value.
type TransformFunc func(value interface{}, source, target documents.Document) (interface{}, bool)

const (
	ConditionTargetHasValues ConditionID = "target_has_values"
	ConditionSourceHasCounts ConditionID = "source_has_counts"
	ConditionTargetHasCase   ConditionID = "target_has_case"
	ConditionSourceHasValue  ConditionID = "source_has_value"
)

const (
	TransformClamp01Round       TransformID = "clamp01_round"
	TransformRound              TransformID = "round"
	TransformMeanFromCounts     TransformID = "mean_from_counts"
	TransformHistoryEntry       TransformID = "history_entry"
	TransformCountsEntry        TransformID = "counts_entry"
	TransformScheduleEntry      TransformID = "schedule_entry"
	TransformMergeVariantWeight TransformID = "merge_variant_weights"
	TransformNowISO             TransformID = "now_iso"
	TransformClear              TransformID = "clear"
)

var conditionFuncs = map[ConditionID]ConditionFunc{
	ConditionTargetHasValues: func(_, target documents.Document) bool {
		arr, _ := target["values"].([]interface{})
		return len(arr) > 0
	},
	ConditionSourceHasCounts: func(source, _ documents.Document) bool {
		n, ok := sourceCount(source, "n")
		return ok && n > 0
	},
	ConditionTargetHasCase: func(_, target documents.Document) bool {
		_, ok := target["case"].(map[string]interface{})
		return ok
	},
	ConditionSourceHasValue: func(source, _ documents.Document) bool {
		return len(source) > 0
	},
}

var transformFuncs = map[TransformID]TransformFunc{
	TransformClamp01Round: func(value interface{}, _, _ documents.Document) (interface{}, bool) {
		f, ok := toFloat(value)
		if !ok {
			return nil, false
		}
		return distribution.Round(distribution.Clamp01(f)), true
	},

	TransformRound: func(value interface{}, _, _ documents.Document) (interface{}, bool) {
		f, ok := toFloat(value)
		if !ok {
			return nil, false
		}
		return distribution.Round(f), true
	},

	// mean = k/n from the source's observation counts.
	TransformMeanFromCounts: func(_ interface{}, source, _ documents.Document) (interface{}, bool) {
		n, okN := sourceCount(source, "n")
		k, okK := sourceCount(source, "k")
		if !okN || !okK || n <= 0 {
			return nil, false
		}
		return distribution.Round(distribution.Clamp01(k / n)), true
	},

	// A new history entry for values[], built from a graph parameter slot.
	TransformHistoryEntry: func(value interface{}, _, _ documents.Document) (interface{}, bool) {
		slot, ok := value.(map[string]interface{})
		if !ok {
			return nil, false
		}
		mean, ok := toFloat(slot["mean"])
		if !ok {
			return nil, false
		}
		entry := map[string]interface{}{
			"mean":        distribution.Round(mean),
			"window_from": utils.NowRFC3339(),
			"source":      "graph",
		}
		if stdev, ok := toFloat(slot["stdev"]); ok {
			entry["stdev"] = stdev
		}
		return entry, true
	},

	// A new history entry for values[], built from external observation
	// counts.
	TransformCountsEntry: func(_ interface{}, source, _ documents.Document) (interface{}, bool) {
		n, okN := sourceCount(source, "n")
		k, okK := sourceCount(source, "k")
		if !okN || !okK || n <= 0 {
			return nil, false
		}
		entry := map[string]interface{}{
			"mean": distribution.Round(distribution.Clamp01(k / n)),
			"n":    int(n),
			"k":    int(k),
		}
		for _, key := range []string{"window_from", "window_to", "source"} {
			if s, ok := source[key].(string); ok && s != "" {
				entry[key] = s
			}
		}
		if entry["window_from"] == nil {
			entry["window_from"] = utils.NowRFC3339()
		}
		return entry, true
	},

	// A new schedule entry for schedules[], snapshotting the case's variant
	// weights.
	TransformScheduleEntry: func(value interface{}, _, _ documents.Document) (interface{}, bool) {
		caseDoc, ok := value.(map[string]interface{})
		if !ok {
			return nil, false
		}
		variants, ok := caseDoc["variants"].([]interface{})
		if !ok || len(variants) == 0 {
			return nil, false
		}
		weights := map[string]interface{}{}
		for _, v := range variants {
			variant, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			name, _ := variant["name"].(string)
			weight, okW := toFloat(variant["weight"])
			if name == "" || !okW {
				continue
			}
			weights[name] = weight
		}
		if len(weights) == 0 {
			return nil, false
		}
		return map[string]interface{}{
			"window_from": utils.NowRFC3339(),
			"weights":     weights,
		}, true
	},

	// Merges incoming per-variant weights into the target's variant list.
	// The value may be a plain {name: weight} map or a schedule entry
	// wrapping one under "weights". Variants whose weight is overridden keep
	// their current value; the variant rebalancer is the one that surfaces
	// the resulting inconsistency.
	TransformMergeVariantWeight: func(value interface{}, _, target documents.Document) (interface{}, bool) {
		weights := weightsMap(value)
		if len(weights) == 0 {
			return nil, false
		}
		caseDoc, ok := target["case"].(map[string]interface{})
		if !ok {
			return nil, false
		}
		variants, ok := caseDoc["variants"].([]interface{})
		if !ok || len(variants) == 0 {
			return nil, false
		}

		merged := make([]interface{}, len(variants))
		for i, v := range variants {
			variant, ok := v.(map[string]interface{})
			if !ok {
				merged[i] = v
				continue
			}
			out := make(map[string]interface{}, len(variant))
			for k, val := range variant {
				out[k] = val
			}
			name, _ := variant["name"].(string)
			overridden, _ := variant["weight_overridden"].(bool)
			if weight, ok := weights[name]; ok && !overridden {
				out["weight"] = distribution.Round(distribution.Clamp01(weight))
			}
			merged[i] = out
		}
		return merged, true
	},

	TransformNowISO: func(interface{}, documents.Document, documents.Document) (interface{}, bool) {
		return utils.NowRFC3339(), true
	},

	TransformClear: func(interface{}, documents.Document, documents.Document) (interface{}, bool) {
		return "", true
	},
}

func lookupCondition(id ConditionID) (ConditionFunc, error) {
	if id == "" {
		return nil, nil
	}
	fn, ok := conditionFuncs[id]
	if !ok {
		return nil, fmt.Errorf("unregistered condition %q", id)
	}
	return fn, nil
}

func lookupTransform(id TransformID) (TransformFunc, error) {
	if id == "" {
		return nil, nil
	}
	fn, ok := transformFuncs[id]
	if !ok {
		return nil, fmt.Errorf("unregistered transform %q", id)
	}
	return fn, nil
}

// toFloat normalizes the numeric types YAML and JSON decoding produce
func toFloat(v interface{}) (float64, bool) {
	switch typed := v.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	default:
		return 0, false
	}
}

func sourceCount(source documents.Document, key string) (float64, bool) {
	if v, ok := toFloat(source[key]); ok {
		return v, true
	}
	if evidence, ok := source["evidence"].(map[string]interface{}); ok {
		return toFloat(evidence[key])
	}
	return 0, false
}

func weightsMap(value interface{}) map[string]float64 {
	m, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	if inner, ok := m["weights"].(map[string]interface{}); ok {
		m = inner
	}
	out := make(map[string]float64, len(m))
	for name, raw := range m {
		if w, ok := toFloat(raw); ok {
			out[name] = w
		}
	}
	return out
}
