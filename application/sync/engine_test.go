package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flowsync-core/domain/documents"
	"flowsync-core/pkg/audit"
	pkgerrors "flowsync-core/pkg/errors"
)

func newTestEngine() (*Engine, *audit.MemorySink) {
	sink := audit.NewMemorySink()
	logger := zap.NewNop()
	return NewEngine(NewRegistry(), NewApplier(logger), sink, logger), sink
}

func paramFileDoc() documents.Document {
	return documents.Document{
		"id":           "p-checkout",
		"distribution": "beta",
		"connection":   "warehouse",
		"source":       "analytics",
		"values": []interface{}{
			map[string]interface{}{
				"mean":        0.42,
				"stdev":       0.03,
				"n":           1000,
				"k":           420,
				"window_from": "2026-08-01",
				"window_to":   "2026-08-07",
				"source":      "analytics",
			},
		},
	}
}

func TestEngine_FileToGraphParameterUpdate(t *testing.T) {
	engine, sink := newTestEngine()

	target := documents.Document{
		"p": map[string]interface{}{"mean": 0.5},
	}

	result, err := engine.HandleFileToGraph(context.Background(), paramFileDoc(), target,
		OperationUpdate, SubDestParameter, Options{UserID: "alice"})
	require.NoError(t, err)
	require.True(t, result.Success)

	p := target["p"].(map[string]interface{})
	assert.Equal(t, 0.42, p["mean"])
	assert.Equal(t, 0.03, p["stdev"])
	assert.Equal(t, "beta", p["distribution"])
	assert.Equal(t, "warehouse", p["connection"])
	assert.Equal(t, "analytics", p["data_source"])

	evidence := p["evidence"].(map[string]interface{})
	assert.Equal(t, 1000, evidence["n"])
	assert.Equal(t, "2026-08-01", evidence["window_from"])

	assert.Equal(t, true, result.Metadata[MetaRequiresSiblingRebalance],
		"a mean change invalidates the sibling distribution")

	entries := sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "UPDATE", entries[0].Operation)
	assert.Equal(t, "file-to-graph", entries[0].Direction)
	assert.Equal(t, "parameter", entries[0].SubDestination)
	assert.Equal(t, "alice", entries[0].UserID)
}

func TestEngine_OptionMetadataLandsOnAuditEntry(t *testing.T) {
	engine, sink := newTestEngine()

	target := documents.Document{
		"p": map[string]interface{}{"mean": 0.5},
	}

	_, err := engine.HandleFileToGraph(context.Background(), paramFileDoc(), target,
		OperationUpdate, SubDestParameter, Options{
			UserID: "alice",
			Metadata: map[string]interface{}{
				"requestId": "req-7",
				"success":   "spoofed",
			},
		})
	require.NoError(t, err)

	entries := sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-7", entries[0].Details["requestId"])
	assert.Equal(t, true, entries[0].Details["success"],
		"apply counters win over caller metadata")
}

func TestEngine_FileToGraphCreateBindsParameter(t *testing.T) {
	engine, _ := newTestEngine()

	target := documents.Document{"p": map[string]interface{}{}}

	result, err := engine.HandleFileToGraph(context.Background(), paramFileDoc(), target,
		OperationCreate, SubDestParameter, Options{})
	require.NoError(t, err)
	require.True(t, result.Success)

	p := target["p"].(map[string]interface{})
	assert.Equal(t, "p-checkout", p["parameter_id"])
	assert.Equal(t, 0.42, p["mean"])
}

func TestEngine_FileToGraphDeleteClearsBindings(t *testing.T) {
	engine, _ := newTestEngine()

	target := documents.Document{
		"p": map[string]interface{}{
			"mean":         0.42,
			"parameter_id": "p-checkout",
			"data_source":  "analytics",
			"connection":   "warehouse",
		},
	}

	result, err := engine.HandleFileToGraph(context.Background(), documents.Document{}, target,
		OperationDelete, SubDestParameter, Options{})
	require.NoError(t, err)
	require.True(t, result.Success)

	p := target["p"].(map[string]interface{})
	assert.Equal(t, "", p["parameter_id"])
	assert.Equal(t, "", p["connection"])
	assert.Equal(t, 0.42, p["mean"], "the last synced value survives unbinding")
}

func TestEngine_GraphToFileAppendWritesHistory(t *testing.T) {
	engine, _ := newTestEngine()

	source := documents.Document{
		"p": map[string]interface{}{"mean": 0.61, "stdev": 0.02},
	}
	target := documents.Document{"id": "p-checkout"}

	result, err := engine.HandleGraphToFile(context.Background(), source, target,
		OperationAppend, SubDestParameter, Options{})
	require.NoError(t, err)
	require.True(t, result.Success)

	values := target["values"].([]interface{})
	require.Len(t, values, 1)
	entry := values[0].(map[string]interface{})
	assert.Equal(t, 0.61, entry["mean"])
	assert.Equal(t, "graph", entry["source"])
	assert.NotEmpty(t, target["updated_at"])

	assert.Nil(t, result.Metadata[MetaRequiresSiblingRebalance],
		"pushing to a file never touches graph distributions")
}

func TestEngine_ExternalToGraphRespectsOverride(t *testing.T) {
	engine, _ := newTestEngine()

	source := documents.Document{
		"n": 200, "k": 50,
		"window_from": "2026-08-10", "window_to": "2026-08-17",
		"source": "analytics",
	}
	target := documents.Document{
		"p": map[string]interface{}{"mean": 0.8, "mean_overridden": true},
	}

	result, err := engine.HandleExternalToGraph(context.Background(), source, target,
		OperationUpdate, SubDestParameter, Options{})
	require.NoError(t, err)
	require.True(t, result.Success)

	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "p.mean", result.Conflicts[0].Field)
	assert.Equal(t, 0.25, result.Conflicts[0].NewValue)

	p := target["p"].(map[string]interface{})
	assert.Equal(t, 0.8, p["mean"], "pinned value must survive the feed")

	evidence := p["evidence"].(map[string]interface{})
	assert.Equal(t, 200, evidence["n"], "evidence still records what was observed")

	assert.Nil(t, result.Metadata[MetaRequiresSiblingRebalance])
}

func TestEngine_ExternalToFileAppendsCounts(t *testing.T) {
	engine, _ := newTestEngine()

	source := documents.Document{
		"n": 200, "k": 50,
		"window_from": "2026-08-10",
		"source":      "analytics",
	}
	target := documents.Document{"id": "p-checkout"}

	result, err := engine.HandleExternalToFile(context.Background(), source, target,
		OperationAppend, SubDestParameter, Options{})
	require.NoError(t, err)
	require.True(t, result.Success)

	values := target["values"].([]interface{})
	require.Len(t, values, 1)
	entry := values[0].(map[string]interface{})
	assert.Equal(t, 0.25, entry["mean"])
	assert.Equal(t, 200, entry["n"])
	assert.Equal(t, 50, entry["k"])
	assert.Equal(t, "2026-08-10", entry["window_from"])
}

func TestEngine_ContextUpdateMergesVariantWeights(t *testing.T) {
	engine, _ := newTestEngine()

	source := documents.Document{
		"experiment_id": "exp-42",
		"status":        "running",
		"weights": map[string]interface{}{
			"control":   0.4,
			"treatment": 0.6,
		},
	}
	target := documents.Document{
		"case": map[string]interface{}{
			"id": "exp-42",
			"variants": []interface{}{
				map[string]interface{}{"name": "control", "weight": 0.5},
				map[string]interface{}{"name": "treatment", "weight": 0.5, "weight_overridden": true},
			},
		},
	}

	result, err := engine.HandleExternalToGraph(context.Background(), source, target,
		OperationUpdate, SubDestContext, Options{})
	require.NoError(t, err)
	require.True(t, result.Success)

	caseDoc := target["case"].(map[string]interface{})
	assert.Equal(t, "running", caseDoc["status"])

	variants := caseDoc["variants"].([]interface{})
	control := variants[0].(map[string]interface{})
	treatment := variants[1].(map[string]interface{})
	assert.Equal(t, 0.4, control["weight"])
	assert.Equal(t, 0.5, treatment["weight"], "overridden variant weight is kept")

	assert.Equal(t, true, result.Metadata[MetaRequiresVariantRebalance])
}

func TestEngine_GraphInternalPermissionCopy(t *testing.T) {
	engine, _ := newTestEngine()

	source := documents.Document{
		"p": map[string]interface{}{"mean": 0.7, "mean_overridden": true},
	}

	t.Run("flags stay put by default", func(t *testing.T) {
		target := documents.Document{"p": map[string]interface{}{"mean": 0.2}}

		result, err := engine.HandleGraphInternal(context.Background(), source, target,
			OperationUpdate, SubDestParameter, Options{})
		require.NoError(t, err)

		p := target["p"].(map[string]interface{})
		assert.Equal(t, 0.7, p["mean"])
		_, hasFlag := p["mean_overridden"]
		assert.False(t, hasFlag)
		assert.Equal(t, true, result.Metadata[MetaRequiresSiblingRebalance])
	})

	t.Run("flags follow when copying is allowed", func(t *testing.T) {
		target := documents.Document{"p": map[string]interface{}{"mean": 0.2}}

		_, err := engine.HandleGraphInternal(context.Background(), source, target,
			OperationUpdate, SubDestParameter, Options{AllowPermissionFlagCopy: true})
		require.NoError(t, err)

		p := target["p"].(map[string]interface{})
		assert.Equal(t, true, p["mean_overridden"])
	})
}

func TestEngine_MissingMappingIsConfigurationError(t *testing.T) {
	engine, sink := newTestEngine()

	_, err := engine.HandleGraphInternal(context.Background(), documents.Document{}, documents.Document{},
		OperationDelete, SubDestCase, Options{})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfiguration(err))
	assert.Empty(t, sink.Entries(), "nothing to audit when the lookup fails")
}

func TestEngine_CancelledContext(t *testing.T) {
	engine, _ := newTestEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.HandleFileToGraph(ctx, paramFileDoc(), documents.Document{},
		OperationUpdate, SubDestParameter, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
