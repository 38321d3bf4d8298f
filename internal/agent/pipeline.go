// Package agent runs the four-stage analysis pipeline:
// Planning, Retrieving, Diagnosing and Recommending.
//
// Stages run strictly in sequence. Each one is announced with a "working" log
// entry and closed with a "completed" (or "error") entry before the next stage
// starts, so a run always emits eight entries. Generation failures never abort
// a run: planning falls back to a default plan, diagnosing and recommending
// fall back to empty results. Only a panic inside a stage fails the run.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AngelCh415/agentic-analyst/internal/generation"
	"github.com/AngelCh415/agentic-analyst/internal/models"
	"github.com/AngelCh415/agentic-analyst/internal/telemetry"
)

var ErrStagePanic = errors.New("pipeline stage panicked")

// Generator is the structured-generate capability the pipeline needs.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (generation.Parsed, error)
}

// Models names the backend model used by each generating stage.
type Models struct {
	Planner   string
	Diagnoser string
	Creative  string
}

type Result struct {
	Plan            []string                        `json:"plan"`
	Insights        []models.InsightResult          `json:"insights"`
	Recommendations []models.CreativeRecommendation `json:"recommendations"`
}

type Pipeline struct {
	gen    Generator
	log    *slog.Logger
	obs    *telemetry.Metrics
	models Models
	delay  time.Duration
	now    func() time.Time
	newID  func() string
}

type Option func(*Pipeline)

func WithModels(m Models) Option                 { return func(p *Pipeline) { p.models = m } }
func WithRetrieveDelay(d time.Duration) Option   { return func(p *Pipeline) { p.delay = d } }
func WithMetrics(m *telemetry.Metrics) Option    { return func(p *Pipeline) { p.obs = m } }
func WithClock(now func() time.Time) Option      { return func(p *Pipeline) { p.now = now } }
func WithIDGenerator(newID func() string) Option { return func(p *Pipeline) { p.newID = newID } }

func New(gen Generator, log *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		gen:   gen,
		log:   log,
		delay: 800 * time.Millisecond,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run drives the stages from Planning to Done. onLog is called synchronously
// for every log entry and must not block for long; it may be nil.
// The returned error is non-nil only when a stage panicked, in which case the
// result is empty.
func (p *Pipeline) Run(ctx context.Context, query string, agg models.AggregatedContext, onLog func(models.AgentLogEntry)) (res Result, err error) {
	st := &runState{query: query, agg: agg}
	cur := models.StagePlanning

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("pipeline stage panicked", slog.String("stage", string(cur)), slog.Any("panic", r))
			res, err = Result{}, fmt.Errorf("%w: %s: %v", ErrStagePanic, cur, r)
		}
	}()

	for cur != models.StageDone {
		s, ok := stageTable[cur]
		if !ok {
			panic(fmt.Sprintf("unknown stage %q", cur))
		}
		p.emit(onLog, cur, models.StatusWorking, s.announce, nil)
		began := time.Now()
		out := s.run(p, ctx, st)
		p.obs.ObserveStage(string(cur), time.Since(began))
		p.emit(onLog, cur, out.status, out.message, out.details)
		cur = s.next
	}

	p.log.Info("pipeline done",
		slog.Int("plan_steps", len(st.plan)),
		slog.Int("insights", len(st.insights)),
		slog.Int("recommendations", len(st.recs)))
	return Result{Plan: st.plan, Insights: st.insights, Recommendations: st.recs}, nil
}

func (p *Pipeline) emit(onLog func(models.AgentLogEntry), stage models.Stage, status models.Status, msg string, details any) {
	if onLog == nil {
		return
	}
	onLog(models.AgentLogEntry{
		ID:        p.newID(),
		Stage:     stage,
		Message:   msg,
		Timestamp: p.now(),
		Status:    status,
		Details:   details,
	})
}

// failed records a stage-local generation failure and returns it normalized.
func (p *Pipeline) failed(stage models.Stage, err error) *generation.Failure {
	f := generation.AsFailure(string(stage), err)
	p.obs.GenerationFailed(f.Stage, string(f.Kind))
	p.log.Warn("stage fell back", slog.String("stage", string(stage)), slog.String("err", f.Error()))
	return f
}
