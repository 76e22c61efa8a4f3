package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BalajiReddy1/querysense/internal/race"
	"github.com/BalajiReddy1/querysense/internal/registry"
)

type stubInvoker struct {
	call func(ctx context.Context, tool string, args map[string]any) (map[string]any, error)
}

func (s *stubInvoker) CallTool(ctx context.Context, endpoint, tool string, args map[string]any, timeout time.Duration) (map[string]any, error) {
	return s.call(ctx, tool, args)
}

func testServer(t *testing.T, invoker race.Invoker) *httptest.Server {
	t.Helper()
	reg, err := registry.New([]registry.AgentSpec{
		{Key: "performance", Tool: "analyze_sql_performance", Label: "Performance Agent", Color: "orange", Endpoint: "http://localhost:8001/mcp"},
		{Key: "cost", Tool: "analyze_sql_cost", Label: "Cost Agent", Color: "blue", Endpoint: "http://localhost:8002/mcp"},
		{Key: "security", Tool: "analyze_sql_security", Label: "Security Agent", Color: "red", Endpoint: "http://localhost:8003/mcp"},
	})
	require.NoError(t, err)

	logger := log.New(io.Discard, "", 0)
	coord, err := race.NewCoordinator(reg, invoker,
		race.JudgeSpec{Endpoint: "http://localhost:8004/mcp", Tool: "judge_sql_results"},
		5*time.Second, 5*time.Second, logger)
	require.NoError(t, err)

	srv, err := New(coord, reg, "http://localhost:8004/mcp", "", logger)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func happyInvoker() *stubInvoker {
	return &stubInvoker{call: func(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
		if tool == "judge_sql_results" {
			return map[string]any{"winner": "Cost Agent", "cost_usd": 0.01}, nil
		}
		return map[string]any{"rewritten_sql": "SELECT 1", "cost_usd": 0.001}, nil
	}}
}

func postAnalyze(t *testing.T, ts *httptest.Server, payload map[string]any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/analyze", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

// sseFrames decodes a text/event-stream body into one JSON object per frame.
func sseFrames(t *testing.T, body io.Reader) []map[string]any {
	t.Helper()
	data, err := io.ReadAll(body)
	require.NoError(t, err)

	var frames []map[string]any
	for _, chunk := range strings.Split(string(data), "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		require.True(t, strings.HasPrefix(chunk, "data: "), "unexpected frame: %q", chunk)
		var frame map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(chunk, "data: ")), &frame))
		frames = append(frames, frame)
	}
	return frames
}

func TestAnalyzeStreamsFullRace(t *testing.T) {
	t.Parallel()

	ts := testServer(t, happyInvoker())
	resp := postAnalyze(t, ts, map[string]any{"query": "SELECT * FROM orders", "dialect": "postgresql"})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	frames := sseFrames(t, resp.Body)
	require.Len(t, frames, 7)

	assert.Equal(t, "race_start", frames[0]["event"])
	assert.Equal(t, "postgresql", frames[0]["dialect"])
	assert.Equal(t, "SELECT * FROM orders", frames[0]["query_preview"])
	assert.NotEmpty(t, frames[0]["race_id"])

	positions := map[float64]bool{}
	for _, frame := range frames[1:4] {
		require.Equal(t, "worker_done", frame["event"])
		positions[frame["position"].(float64)] = true
	}
	assert.Equal(t, map[float64]bool{1: true, 2: true, 3: true}, positions)

	assert.Equal(t, "synthesizing", frames[4]["event"])
	assert.Equal(t, "verdict", frames[5]["event"])
	assert.InDelta(t, 0.013, frames[5]["total_cost_usd"], 1e-9)
	assert.Equal(t, false, frames[5]["had_errors"])
	assert.Equal(t, "done", frames[6]["event"])
}

func TestAnalyzeRejectsOversizedQuery(t *testing.T) {
	t.Parallel()

	ts := testServer(t, happyInvoker())
	resp := postAnalyze(t, ts, map[string]any{"query": strings.Repeat("a", race.MaxQueryLen+1)})
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["detail"], "too long")
}

func TestAnalyzeAcceptsQueryAtLimit(t *testing.T) {
	t.Parallel()

	ts := testServer(t, happyInvoker())
	resp := postAnalyze(t, ts, map[string]any{"query": strings.Repeat("a", race.MaxQueryLen)})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	frames := sseFrames(t, resp.Body)
	require.NotEmpty(t, frames)
	assert.Equal(t, "race_start", frames[0]["event"])
	assert.Equal(t, "done", frames[len(frames)-1]["event"])
}

func TestAnalyzeRejectsEmptyQueryWithoutEvents(t *testing.T) {
	t.Parallel()

	ts := testServer(t, happyInvoker())
	for _, query := range []string{"", "   \n\t"} {
		resp := postAnalyze(t, ts, map[string]any{"query": query})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.NotContains(t, string(data), "race_start")
		assert.Contains(t, string(data), "detail")
	}
}

func TestAnalyzeSynthesisFailureOmitsVerdict(t *testing.T) {
	t.Parallel()

	invoker := &stubInvoker{call: func(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
		if tool == "judge_sql_results" {
			return nil, fmt.Errorf("judge unreachable")
		}
		return map[string]any{"rewritten_sql": "SELECT 1"}, nil
	}}
	ts := testServer(t, invoker)

	resp := postAnalyze(t, ts, map[string]any{"query": "SELECT 1"})
	defer resp.Body.Close()

	frames := sseFrames(t, resp.Body)
	var tags []string
	for _, frame := range frames {
		tags = append(tags, frame["event"].(string))
	}
	assert.NotContains(t, tags, "verdict")
	require.GreaterOrEqual(t, len(tags), 3)
	assert.Equal(t, []string{"synthesizing", "synthesis_error", "done"}, tags[len(tags)-3:])
}

func TestHealthReportsDegradedAgents(t *testing.T) {
	t.Parallel()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer healthy.Close()

	reg, err := registry.New([]registry.AgentSpec{
		{Key: "performance", Tool: "analyze_sql_performance", Label: "Performance Agent", Color: "orange", Endpoint: healthy.URL + "/mcp"},
		{Key: "cost", Tool: "analyze_sql_cost", Label: "Cost Agent", Color: "blue", Endpoint: "http://127.0.0.1:1/mcp"},
	})
	require.NoError(t, err)

	logger := log.New(io.Discard, "", 0)
	coord, err := race.NewCoordinator(reg, happyInvoker(),
		race.JudgeSpec{Endpoint: healthy.URL + "/mcp", Tool: "judge_sql_results"},
		5*time.Second, 5*time.Second, logger)
	require.NoError(t, err)

	srv, err := New(coord, reg, healthy.URL+"/mcp", "", logger)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Status  string            `json:"status"`
		Agents  map[string]string `json:"agents"`
		Version string            `json:"version"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, version, body.Version)
	assert.Equal(t, "ok", body.Agents["performance"])
	assert.Equal(t, "ok", body.Agents["judge"])
	assert.True(t, strings.HasPrefix(body.Agents["cost"], "unreachable:"), body.Agents["cost"])
	assert.LessOrEqual(t, len(body.Agents["cost"]), len("unreachable: ")+50)
}

func TestDemoQueries(t *testing.T) {
	t.Parallel()

	ts := testServer(t, happyInvoker())
	resp, err := http.Get(ts.URL + "/demo-queries")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Queries []demoQuery `json:"queries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Queries, 5)
	assert.Equal(t, "The N+1 Classic", body.Queries[0].Name)
	for _, query := range body.Queries {
		assert.NotEmpty(t, query.SQL)
		assert.NotEmpty(t, query.Dialect)
	}
}
