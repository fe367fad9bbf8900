package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flowsync-core/domain/documents"
)

func TestApplier_CopiesAndTransforms(t *testing.T) {
	applier := NewApplier(zap.NewNop())

	source := documents.Document{
		"label": "Checkout",
		"p":     map[string]interface{}{"mean": 1.23456},
	}
	target := documents.Document{}

	rules := []Rule{
		{SourceField: "label", TargetField: "label"},
		{SourceField: "p.mean", TargetField: "p.mean", Transform: TransformClamp01Round},
	}

	result := applier.Apply(source, target, rules, Options{})

	require.True(t, result.Success)
	require.Len(t, result.Changes, 2)
	assert.Equal(t, "Checkout", target["label"])

	p := target["p"].(map[string]interface{})
	assert.Equal(t, 1.0, p["mean"], "clamped into [0,1] before rounding")
}

func TestApplier_SecondApplyIsIdempotent(t *testing.T) {
	applier := NewApplier(zap.NewNop())

	source := documents.Document{"label": "Checkout"}
	target := documents.Document{}
	rules := []Rule{{SourceField: "label", TargetField: "label"}}

	first := applier.Apply(source, target, rules, Options{})
	require.Len(t, first.Changes, 1)

	second := applier.Apply(source, target, rules, Options{})
	assert.True(t, second.Success)
	assert.Empty(t, second.Changes, "no diff on the second pass")
}

func TestApplier_OverrideFlagBlocksWrite(t *testing.T) {
	applier := NewApplier(zap.NewNop())

	rules := []Rule{
		{SourceField: "mean", TargetField: "p.mean", OverrideFlag: "p.mean_overridden"},
	}
	source := documents.Document{"mean": 0.3}

	t.Run("flag set records a conflict and leaves the value", func(t *testing.T) {
		target := documents.Document{
			"p": map[string]interface{}{"mean": 0.9, "mean_overridden": true},
		}

		result := applier.Apply(source, target, rules, Options{})

		require.True(t, result.Success, "a conflict is not an error")
		assert.Empty(t, result.Changes)
		require.Len(t, result.Conflicts, 1)
		assert.Equal(t, "p.mean", result.Conflicts[0].Field)
		assert.Equal(t, 0.9, result.Conflicts[0].CurrentValue)
		assert.Equal(t, 0.3, result.Conflicts[0].NewValue)
		assert.Equal(t, "overridden", result.Conflicts[0].Reason)

		p := target["p"].(map[string]interface{})
		assert.Equal(t, 0.9, p["mean"])
	})

	t.Run("no conflict when the values already agree", func(t *testing.T) {
		target := documents.Document{
			"p": map[string]interface{}{"mean": 0.3, "mean_overridden": true},
		}

		result := applier.Apply(source, target, rules, Options{})
		assert.Empty(t, result.Conflicts)
		assert.Empty(t, result.Changes)
	})

	t.Run("IgnoreOverrideFlags forces the write", func(t *testing.T) {
		target := documents.Document{
			"p": map[string]interface{}{"mean": 0.9, "mean_overridden": true},
		}

		result := applier.Apply(source, target, rules, Options{IgnoreOverrideFlags: true})

		require.Len(t, result.Changes, 1)
		p := target["p"].(map[string]interface{})
		assert.Equal(t, 0.3, p["mean"])
	})
}

func TestApplier_ValidateOnlyLeavesTargetUntouched(t *testing.T) {
	applier := NewApplier(zap.NewNop())

	source := documents.Document{"label": "New"}
	target := documents.Document{"label": "Old"}
	rules := []Rule{{SourceField: "label", TargetField: "label"}}

	result := applier.Apply(source, target, rules, Options{ValidateOnly: true})

	require.Len(t, result.Changes, 1)
	assert.Equal(t, "Old", result.Changes[0].OldValue)
	assert.Equal(t, "New", result.Changes[0].NewValue)
	assert.Equal(t, "Old", target["label"], "validate-only must not write")
}

func TestApplier_TransformWithoutDataSkipsRule(t *testing.T) {
	applier := NewApplier(zap.NewNop())

	// No counts in the source: mean_from_counts cannot produce a value.
	source := documents.Document{"window_from": "2026-01-01"}
	target := documents.Document{"p": map[string]interface{}{"mean": 0.5}}
	rules := []Rule{
		{TargetField: "p.mean", Transform: TransformMeanFromCounts},
		{SourceField: "window_from", TargetField: "p.evidence.window_from"},
	}

	result := applier.Apply(source, target, rules, Options{})

	require.True(t, result.Success)
	require.Len(t, result.Changes, 1, "only the window copy applies")
	p := target["p"].(map[string]interface{})
	assert.Equal(t, 0.5, p["mean"])
}

func TestApplier_MissingSourceFieldSkipsSilently(t *testing.T) {
	applier := NewApplier(zap.NewNop())

	source := documents.Document{}
	target := documents.Document{"label": "Kept"}
	rules := []Rule{{SourceField: "label", TargetField: "label"}}

	result := applier.Apply(source, target, rules, Options{})

	assert.True(t, result.Success)
	assert.Empty(t, result.Changes)
	assert.Equal(t, "Kept", target["label"])
}

func TestApplier_PermissionCopyRequiresOptIn(t *testing.T) {
	applier := NewApplier(zap.NewNop())

	source := documents.Document{
		"p": map[string]interface{}{"mean_overridden": true},
	}
	rules := []Rule{
		{SourceField: "p.mean_overridden", TargetField: "p.mean_overridden", PermissionCopy: true},
	}

	t.Run("skipped by default", func(t *testing.T) {
		target := documents.Document{"p": map[string]interface{}{}}
		result := applier.Apply(source, target, rules, Options{})
		assert.Empty(t, result.Changes)
	})

	t.Run("applied when allowed", func(t *testing.T) {
		target := documents.Document{"p": map[string]interface{}{}}
		result := applier.Apply(source, target, rules, Options{AllowPermissionFlagCopy: true})
		require.Len(t, result.Changes, 1)
		p := target["p"].(map[string]interface{})
		assert.Equal(t, true, p["mean_overridden"])
	})
}

func TestApplier_ErrorsAndStopOnError(t *testing.T) {
	applier := NewApplier(zap.NewNop())

	source := documents.Document{"mean": 0.4, "label": "After"}
	// values is missing, so values[latest] cannot resolve.
	badThenGood := []Rule{
		{SourceField: "mean", TargetField: "values[latest].mean"},
		{SourceField: "label", TargetField: "label"},
	}

	t.Run("error recorded, later rules still run", func(t *testing.T) {
		target := documents.Document{}
		result := applier.Apply(source, target, badThenGood, Options{})

		assert.False(t, result.Success)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "values[latest].mean", result.Errors[0].Field)
		assert.Equal(t, "After", target["label"])
	})

	t.Run("StopOnError aborts the rule list", func(t *testing.T) {
		target := documents.Document{}
		result := applier.Apply(source, target, badThenGood, Options{StopOnError: true})

		assert.False(t, result.Success)
		require.Len(t, result.Errors, 1)
		_, hasLabel := target["label"]
		assert.False(t, hasLabel)
	})
}

func TestApplier_AppendAlwaysWrites(t *testing.T) {
	applier := NewApplier(zap.NewNop())

	source := documents.Document{
		"p": map[string]interface{}{"mean": 0.62, "stdev": 0.05},
	}
	target := documents.Document{}
	rules := []Rule{
		{SourceField: "p", TargetField: "values[]", Transform: TransformHistoryEntry},
	}

	for i := 0; i < 2; i++ {
		result := applier.Apply(source, target, rules, Options{})
		require.True(t, result.Success)
		require.Len(t, result.Changes, 1)
	}

	values := target["values"].([]interface{})
	require.Len(t, values, 2)
	entry := values[0].(map[string]interface{})
	assert.Equal(t, 0.62, entry["mean"])
	assert.Equal(t, "graph", entry["source"])
	assert.NotEmpty(t, entry["window_from"])
}

func TestApplier_NumericTypesCompareEqual(t *testing.T) {
	applier := NewApplier(zap.NewNop())

	// YAML decodes whole numbers as int; the graph holds float64.
	source := documents.Document{"weight": 1}
	target := documents.Document{"weight": 1.0}
	rules := []Rule{{SourceField: "weight", TargetField: "weight"}}

	result := applier.Apply(source, target, rules, Options{})
	assert.Empty(t, result.Changes)
}

func TestApplier_UnregisteredTransformIsAnError(t *testing.T) {
	applier := NewApplier(zap.NewNop())

	source := documents.Document{"x": 1}
	target := documents.Document{}
	rules := []Rule{{SourceField: "x", TargetField: "x", Transform: "no_such_transform"}}

	result := applier.Apply(source, target, rules, Options{})

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "no_such_transform")
}
