package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knhk/core/internal/hookregistry"
	"github.com/knhk/core/internal/ontology"
	"github.com/knhk/core/internal/pipeline"
	"github.com/knhk/core/internal/receipt"
	"github.com/knhk/core/internal/ring"
)

func newTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	delta := ring.New(4)
	asserted := ring.New(4)
	return pipeline.New(pipeline.Config{
		Validator: ontology.AllowAll{},
		Shards:    []pipeline.Shard{{Delta: delta, Asserted: asserted}},
	})
}

func TestRegisterSpecsReturnsHookIDs(t *testing.T) {
	registry := hookregistry.New()
	s := New(registry, nil, nil, nil)

	body := `[{"predicate": 42, "kind": 0}]`
	req := httptest.NewRequest(http.MethodPost, "/specs", strings.NewReader(body))
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		HookIDs []string `json:"hook_ids"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.HookIDs, 1)
}

func TestCycleRootReturnsCurrentHead(t *testing.T) {
	chain := receipt.NewChain()
	s := New(hookregistry.New(), nil, chain, nil)

	req := httptest.NewRequest(http.MethodGet, "/cycles/abc/root", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cycle_id":"abc"`)
}

func TestListReceiptsWithoutStoreReturnsEmptyArray(t *testing.T) {
	s := New(hookregistry.New(), nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/receipts", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateCaseAllocatesAnID(t *testing.T) {
	s := New(hookregistry.New(), nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/cases", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		CaseID string `json:"case_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CaseID)
}

func TestDriveCaseLoadsEventsIntoPipeline(t *testing.T) {
	pipe := newTestPipeline(t)
	s := New(hookregistry.New(), pipe, nil, nil)

	body := `{"tenant_id": "tenant-a", "events": [{"subject": "urn:s:1", "predicate": "urn:p:1", "object": "urn:o:1"}]}`
	req := httptest.NewRequest(http.MethodPost, "/cases/case-1/drive", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp struct {
		CaseID  string `json:"case_id"`
		Status  string `json:"status"`
		Triples int    `json:"triples"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "case-1", resp.CaseID)
	assert.Equal(t, "loaded", resp.Status)
	assert.Equal(t, 1, resp.Triples)

	out, ok := pipe.Shards[0].Delta.Dequeue(0)
	require.True(t, ok, "driven event must have reached the shard's Δ-ring")
	assert.Len(t, out.Triples(), 1)
}

func TestDriveCaseRejectsMalformedBody(t *testing.T) {
	pipe := newTestPipeline(t)
	s := New(hookregistry.New(), pipe, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/cases/case-1/drive", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
