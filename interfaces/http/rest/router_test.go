package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flowsync-core/application/services"
	"flowsync-core/application/sync"
	"flowsync-core/domain/core/validators"
	"flowsync-core/infrastructure/config"
	"flowsync-core/infrastructure/persistence/filedoc"
	"flowsync-core/interfaces/http/rest/handlers"
	"flowsync-core/pkg/audit"
)

func newTestServer(t *testing.T) (http.Handler, *audit.MemorySink) {
	t.Helper()
	logger := zap.NewNop()
	trail := audit.NewMemorySink()

	store, err := filedoc.NewStore(t.TempDir(), logger)
	require.NoError(t, err)

	engine := sync.NewEngine(sync.NewRegistry(), sync.NewApplier(logger), trail, logger)
	h := Handlers{
		Sync: handlers.NewSyncHandler(engine),
		Graph: handlers.NewGraphHandler(
			services.NewGraphService(logger, trail),
			services.NewRebalanceService(logger, trail),
			services.NewConditionalService(logger, trail),
			validators.NewGraphValidator(),
		),
		Documents: handlers.NewDocumentHandler(store),
		Audit:     handlers.NewAuditHandler(trail),
	}

	cfg := &config.Config{
		ServerAddress: ":0",
		Environment:   "development",
		DocumentDir:   t.TempDir(),
		EnableCORS:    true,
	}
	return NewRouter(cfg, logger, h), trail
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SyncFileToGraph(t *testing.T) {
	router, trail := newTestServer(t)

	rec := postJSON(t, router, "/api/v1/sync/file-to-graph", map[string]interface{}{
		"source": map[string]interface{}{
			"values": []interface{}{
				map[string]interface{}{"mean": 0.42, "window_from": "2026-08-01"},
			},
		},
		"target":          map[string]interface{}{"p": map[string]interface{}{"mean": 0.5}},
		"operation":       "UPDATE",
		"sub_destination": "parameter",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Result struct {
				Success  bool                   `json:"success"`
				Metadata map[string]interface{} `json:"metadata"`
			} `json:"result"`
			Target map[string]interface{} `json:"target"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Result.Success)
	assert.Equal(t, true, envelope.Data.Result.Metadata["requiresSiblingRebalance"])

	p := envelope.Data.Target["p"].(map[string]interface{})
	assert.Equal(t, 0.42, p["mean"])

	assert.Len(t, trail.Entries(), 1)
}

func TestRouter_SyncUnknownDirection(t *testing.T) {
	router, _ := newTestServer(t)

	rec := postJSON(t, router, "/api/v1/sync/sideways", map[string]interface{}{
		"target": map[string]interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_RebalanceSiblings(t *testing.T) {
	router, _ := newTestServer(t)

	graph := map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{"uuid": "u-a", "id": "a"},
			map[string]interface{}{"uuid": "u-b", "id": "b"},
			map[string]interface{}{"uuid": "u-c", "id": "c"},
		},
		"edges": []interface{}{
			map[string]interface{}{"uuid": "e-ab", "from": "u-a", "to": "u-b", "p": map[string]interface{}{"mean": 0.5}},
			map[string]interface{}{"uuid": "e-ac", "from": "u-a", "to": "u-c", "p": map[string]interface{}{"mean": 0.3}},
		},
	}
	rec := postJSON(t, router, "/api/v1/rebalance/siblings", map[string]interface{}{
		"graph": graph,
		"edge":  "e-ab",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data struct {
			Adjusted []string `json:"adjusted"`
			Graph    struct {
				Edges []struct {
					UUID string `json:"uuid"`
					P    struct {
						Mean float64 `json:"mean"`
					} `json:"p"`
				} `json:"edges"`
			} `json:"graph"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, []string{"e-ac"}, envelope.Data.Adjusted)
	assert.Equal(t, 0.5, envelope.Data.Graph.Edges[1].P.Mean)
}

func TestRouter_ValidateReportsDrift(t *testing.T) {
	router, _ := newTestServer(t)

	graph := map[string]interface{}{
		"nodes": []interface{}{
			map[string]interface{}{"uuid": "u-a", "id": "a"},
			map[string]interface{}{"uuid": "u-b", "id": "b"},
		},
		"edges": []interface{}{
			map[string]interface{}{"uuid": "e-ab", "from": "u-a", "to": "u-b", "p": map[string]interface{}{"mean": 0.5}},
		},
	}
	rec := postJSON(t, router, "/api/v1/graph/validate", map[string]interface{}{"graph": graph})
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			Valid  bool `json:"valid"`
			Issues []struct {
				Severity string `json:"severity"`
			} `json:"issues"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Valid, "drift is a warning, not an error")
	require.Len(t, envelope.Data.Issues, 1)
	assert.Equal(t, "warning", envelope.Data.Issues[0].Severity)
}

func TestRouter_DocumentLifecycle(t *testing.T) {
	router, _ := newTestServer(t)

	put := httptest.NewRequest(http.MethodPut, "/api/v1/documents/p-checkout",
		bytes.NewReader([]byte(`{"id":"p-checkout","distribution":"beta"}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, put)
	require.Equal(t, http.StatusOK, rec.Code)

	get := httptest.NewRequest(http.MethodGet, "/api/v1/documents/p-checkout", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, get)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "beta")

	del := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/p-checkout", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, del)
	require.Equal(t, http.StatusNoContent, rec.Code)

	get = httptest.NewRequest(http.MethodGet, "/api/v1/documents/p-checkout", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, get)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_AuditTrail(t *testing.T) {
	router, trail := newTestServer(t)
	trail.Append(audit.NewEntry("UPDATE", map[string]interface{}{"changes": 1}))
	trail.Append(audit.NewEntry("CREATE_EDGE", nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit?limit=1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			Entries []struct {
				Operation string `json:"operation"`
			} `json:"entries"`
			Total int `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Entries, 1)
	assert.Equal(t, "CREATE_EDGE", envelope.Data.Entries[0].Operation)
	assert.Equal(t, 1, envelope.Data.Total)
}