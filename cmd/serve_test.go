package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/config"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/enhance"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/model"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/store"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/pkg/llm"
)

// stubLLM fails every call; router tests exercise the HTTP surface, not the
// model.
type stubLLM struct{}

func (stubLLM) Complete(context.Context, llm.Request) (*llm.Response, error) {
	return nil, eris.New("no model in tests")
}

func newTestEnv(t *testing.T) *pipelineEnv {
	t.Helper()
	cfg = &config.Config{}
	cfg.Server.AllowedOrigins = []string{"*"}

	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	engine := enhance.NewEngine(st, stubLLM{}, enhance.Config{})
	return &pipelineEnv{
		Store:     st,
		Engine:    engine,
		Batch:     enhance.NewBatch(engine, st),
		Iterative: enhance.NewIterative(engine, st),
		Sweep:     enhance.NewSweep(st),
	}
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServeHealth(t *testing.T) {
	router := newRouter(newTestEnv(t))

	rec := doRequest(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeProgressIdle(t *testing.T) {
	router := newRouter(newTestEnv(t))

	rec := doRequest(t, router, http.MethodGet, "/enhance/progress", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var prog model.Progress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prog))
	assert.Equal(t, model.JobIdle, prog.Status)
}

func TestServeStartRejectsUnknownKind(t *testing.T) {
	router := newRouter(newTestEnv(t))

	rec := doRequest(t, router, http.MethodPost, "/enhance/start", `{"kind":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown enhancement kind")
}

func TestServeStartRejectsBadBody(t *testing.T) {
	router := newRouter(newTestEnv(t))

	rec := doRequest(t, router, http.MethodPost, "/enhance/start", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeStartStopLifecycle(t *testing.T) {
	env := newTestEnv(t)
	router := newRouter(env)

	rec := doRequest(t, router, http.MethodPost, "/enhance/start", `{"kind":"values"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var prog model.Progress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prog))
	assert.Equal(t, 0, prog.Total, "empty store has nothing eligible")

	// The worker completes immediately on an empty store.
	require.Eventually(t, func() bool {
		return env.Iterative.GetProgress().Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	rec = doRequest(t, router, http.MethodPost, "/enhance/stop", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServeStartConflict(t *testing.T) {
	env := newTestEnv(t)
	router := newRouter(env)

	// Seed enough work that the run is still active for the second start.
	// The stub model fails each call, which still takes a store round trip.
	ctx := context.Background()
	for i := 0; i < 200; i++ {
		require.NoError(t, env.Store.CreateProspect(ctx, &model.Prospect{
			EstimatedValueText: "$10,000",
		}))
	}

	rec := doRequest(t, router, http.MethodPost, "/enhance/start", `{"kind":"values"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/enhance/start", `{"kind":"values"}`)
	if rec.Code != http.StatusConflict {
		// The first run may already have finished on a fast machine.
		t.Skip("first run completed before the second start")
	}
	assert.Contains(t, rec.Body.String(), "already active")

	doRequest(t, router, http.MethodPost, "/enhance/stop", "")
	require.Eventually(t, func() bool {
		return env.Iterative.GetProgress().Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestServeAuditEndpoint(t *testing.T) {
	env := newTestEnv(t)
	router := newRouter(env)
	ctx := context.Background()

	p := &model.Prospect{Title: "Audited"}
	require.NoError(t, env.Store.CreateProspect(ctx, p))
	require.NoError(t, env.Store.InsertAuditEntry(ctx, &model.AuditEntry{
		ProspectID: p.ID,
		Kind:       model.KindValues,
		Success:    true,
	}))

	rec := doRequest(t, router, http.MethodGet, "/prospects/"+p.ID+"/audit", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Entries []model.AuditEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, model.KindValues, resp.Entries[0].Kind)

	rec = doRequest(t, router, http.MethodGet, "/prospects/"+p.ID+"/audit?kind=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/prospects/none/audit", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"entries":[]`)
}
