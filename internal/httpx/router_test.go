package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/agentic-analyst/internal/agent"
	"github.com/AngelCh415/agentic-analyst/internal/analysis"
	"github.com/AngelCh415/agentic-analyst/internal/config"
	"github.com/AngelCh415/agentic-analyst/internal/generation"
	"github.com/AngelCh415/agentic-analyst/internal/ingest"
	"github.com/AngelCh415/agentic-analyst/internal/metrics"
	"github.com/AngelCh415/agentic-analyst/internal/models"
	"github.com/AngelCh415/agentic-analyst/internal/store"
	"github.com/AngelCh415/agentic-analyst/internal/telemetry"
)

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingRunner) Run(ctx context.Context, _ string, _ models.AggregatedContext, onLog func(models.AgentLogEntry)) (agent.Result, error) {
	onLog(models.AgentLogEntry{ID: "1", Stage: models.StagePlanning, Status: models.StatusWorking})
	close(b.started)
	<-b.release
	return agent.Result{Insights: []models.InsightResult{{Title: "done"}}, Recommendations: []models.CreativeRecommendation{}}, nil
}

type harness struct {
	h   http.Handler
	svc *analysis.Service
}

func newHarness(t *testing.T, runner analysis.Runner) harness {
	t.Helper()
	return newHarnessWith(t, func(*slog.Logger, *telemetry.Metrics) analysis.Runner { return runner })
}

// newHarnessWith lets the runner share the router's logger and metrics.
func newHarnessWith(t *testing.T, mk func(*slog.Logger, *telemetry.Metrics) analysis.Runner) harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewMemoryStore()
	today := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	st.Reset(ingest.Generate(30, today, rand.New(rand.NewSource(3))))

	cfg := config.Config{SyntheticDays: 5, DataSeed: 9}
	etl := ingest.NewETL(ingest.Synthetic{Days: cfg.SyntheticDays, Seed: cfg.DataSeed}, ingest.NewHTTPClient(time.Second), log, cfg)
	obs := telemetry.New()
	svc := analysis.NewService(st, mk(log, obs), etl, log, obs, 5*time.Second)
	t.Cleanup(svc.Wait)
	return harness{h: NewRouter(log, svc, metrics.NewService(st), obs), svc: svc}
}

func (h harness) do(method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	h := newHarness(t, &blockingRunner{})
	assert.Equal(t, 200, h.do("GET", "/healthz", "").Code)
	assert.Equal(t, 200, h.do("GET", "/readyz", "").Code)

	rec := h.do("GET", "/healthz", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRunAcceptedThenConflictWhileBusy(t *testing.T) {
	br := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	h := newHarness(t, br)

	rec := h.do("POST", "/api/session/run", `{"query":"Why did ROAS drop?"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out["id"])
	<-br.started

	assert.Equal(t, http.StatusConflict, h.do("POST", "/api/session/run", `{"query":"again"}`).Code)
	assert.Equal(t, http.StatusConflict, h.do("POST", "/api/session/export", "").Code)

	var sess models.Session
	require.NoError(t, json.Unmarshal(h.do("GET", "/api/session", "").Body.Bytes(), &sess))
	assert.Equal(t, out["id"], sess.ID)
	assert.True(t, sess.IsProcessing)
	assert.Len(t, sess.Logs, 1)

	close(br.release)
	h.svc.Wait()

	require.NoError(t, json.Unmarshal(h.do("GET", "/api/session", "").Body.Bytes(), &sess))
	assert.False(t, sess.IsProcessing)
	assert.Len(t, sess.Insights, 1)
}

func TestRunRejectsBadInput(t *testing.T) {
	h := newHarness(t, &blockingRunner{})
	assert.Equal(t, 400, h.do("POST", "/api/session/run", `{"query":"  "}`).Code)
	assert.Equal(t, 400, h.do("POST", "/api/session/run", `not json`).Code)
}

func TestResetRegeneratesDataset(t *testing.T) {
	h := newHarness(t, &blockingRunner{})
	before := h.svc.Session().ID

	rec := h.do("POST", "/api/session/reset", "")
	require.Equal(t, 200, rec.Code)
	var out struct {
		Records int    `json:"records"`
		ID      string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 18, out.Records)
	assert.NotEqual(t, before, out.ID)

	var trend []models.TrendPoint
	require.NoError(t, json.Unmarshal(h.do("GET", "/api/data/trend", "").Body.Bytes(), &trend))
	assert.Len(t, trend, 6)
}

func TestExportWithoutSink(t *testing.T) {
	h := newHarness(t, &blockingRunner{})
	assert.Equal(t, http.StatusServiceUnavailable, h.do("POST", "/api/session/export", "").Code)
}

func TestDataEndpoints(t *testing.T) {
	h := newHarness(t, &blockingRunner{})

	var totals map[string]any
	require.NoError(t, json.Unmarshal(h.do("GET", "/api/data/summary", "").Body.Bytes(), &totals))
	assert.Contains(t, totals, "total_roas")
	assert.Contains(t, totals, "avg_ctr")

	var trend []models.TrendPoint
	require.NoError(t, json.Unmarshal(h.do("GET", "/api/data/trend?from=2025-08-25&to=2025-08-27", "").Body.Bytes(), &trend))
	require.Len(t, trend, 3)
	assert.Equal(t, "2025-08-25", trend[0].Date)

	var camps []models.CampaignStat
	require.NoError(t, json.Unmarshal(h.do("GET", "/api/data/campaigns?sort=ctr", "").Body.Bytes(), &camps))
	require.Len(t, camps, 3)
	assert.GreaterOrEqual(t, float64(camps[0].CTR), float64(camps[1].CTR))

	var lows []models.CreativeStat
	require.NoError(t, json.Unmarshal(h.do("GET", "/api/data/creatives", "").Body.Bytes(), &lows))
	assert.Len(t, lows, 3)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarnessWith(t, func(log *slog.Logger, obs *telemetry.Metrics) analysis.Runner {
		gen := generation.NewClient(generation.Unconfigured{}, 0, log)
		return agent.New(gen, log, agent.WithRetrieveDelay(0), agent.WithMetrics(obs))
	})
	_, err := h.svc.Analyze(context.Background(), "q", nil)
	require.NoError(t, err)

	rec := h.do("GET", "/metrics", "")
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `analyst_runs_total{outcome="ok"} 1`)
	body := rec.Body.String()
	for _, stage := range []string{"planning", "retrieving", "diagnosing", "recommending"} {
		assert.Contains(t, body, `analyst_stage_duration_seconds_count{stage="`+stage+`"} 1`)
	}
	assert.Contains(t, body, `analyst_generation_failures_total{kind="backend",stage="planning"} 1`)
}

func TestDataEndpointsRejectBadQuery(t *testing.T) {
	h := newHarness(t, &blockingRunner{})
	assert.Equal(t, 400, h.do("GET", "/api/data/trend?from=not-a-date", "").Code)
	assert.Equal(t, 400, h.do("GET", "/api/data/campaigns?sort=spend", "").Code)
}
