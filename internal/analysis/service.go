// Package analysis owns the run lifecycle around the agent pipeline: it
// starts runs against the session store, makes sure the processing flag is
// always cleared and keeps results of a reset session from leaking into the
// new one.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AngelCh415/agentic-analyst/internal/agent"
	"github.com/AngelCh415/agentic-analyst/internal/models"
	"github.com/AngelCh415/agentic-analyst/internal/store"
	"github.com/AngelCh415/agentic-analyst/internal/telemetry"
)

var (
	ErrBusy       = errors.New("an analysis is already running")
	ErrEmptyQuery = errors.New("query is empty")
)

// Runner executes one pipeline run. *agent.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, query string, agg models.AggregatedContext, onLog func(models.AgentLogEntry)) (agent.Result, error)
}

// DataPipe loads the record dataset and ships finished sessions out.
// *ingest.ETL implements it.
type DataPipe interface {
	Extract(ctx context.Context) ([]models.PerformanceRecord, error)
	ExportSession(ctx context.Context, s models.Session) (int, error)
}

type Service struct {
	st      *store.MemoryStore
	runner  Runner
	data    DataPipe
	log     *slog.Logger
	obs     *telemetry.Metrics
	timeout time.Duration

	wg sync.WaitGroup
}

func NewService(st *store.MemoryStore, runner Runner, data DataPipe, log *slog.Logger, obs *telemetry.Metrics, timeout time.Duration) *Service {
	return &Service{st: st, runner: runner, data: data, log: log, obs: obs, timeout: timeout}
}

// Start begins a run in the background and returns its session id.
// The run is detached from any request context and bounded by the run timeout.
func (s *Service) Start(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	id, ok := s.st.BeginRun(query)
	if !ok {
		return "", ErrBusy
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := s.runContext(context.Background())
		defer cancel()
		_ = s.execute(ctx, id, query, nil)
	}()
	return id, nil
}

// Analyze runs inline and returns the finished session. onLog, when set,
// sees every log entry right after the store does.
func (s *Service) Analyze(ctx context.Context, query string, onLog func(models.AgentLogEntry)) (models.Session, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.Session{}, ErrEmptyQuery
	}
	id, ok := s.st.BeginRun(query)
	if !ok {
		return models.Session{}, ErrBusy
	}
	ctx, cancel := s.runContext(ctx)
	defer cancel()
	err := s.execute(ctx, id, query, onLog)
	return s.st.Session(), err
}

// Wait blocks until every background run has finished.
func (s *Service) Wait() { s.wg.Wait() }

func (s *Service) execute(ctx context.Context, id, query string, onLog func(models.AgentLogEntry)) (err error) {
	s.obs.RunStarted()
	began := time.Now()
	var res agent.Result

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run %s panicked: %v", id, r)
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
			res = agent.Result{}
		}
		if !s.st.FinishRun(id, res.Insights, res.Recommendations, err) {
			outcome = "stale"
			s.log.Info("dropping results of a reset session", slog.String("session", id))
		}
		s.obs.RunFinished(outcome)
		s.log.Info("run finished",
			slog.String("session", id),
			slog.String("outcome", outcome),
			slog.Duration("took", time.Since(began)))
	}()

	res, err = s.runner.Run(ctx, query, s.st.Context(), func(e models.AgentLogEntry) {
		if s.st.AppendLog(id, e) && onLog != nil {
			onLog(e)
		}
	})
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("run %s: %w", id, ctx.Err())
	}
	return err
}

// Regenerate reloads the dataset from the data source and resets the
// session. A run still in flight keeps going but its results are dropped.
func (s *Service) Regenerate(ctx context.Context) (int, error) {
	records, err := s.data.Extract(ctx)
	if err != nil {
		return 0, fmt.Errorf("regenerate: %w", err)
	}
	id := s.st.Reset(records)
	s.log.Info("dataset regenerated", slog.Int("records", len(records)), slog.String("session", id))
	return len(records), nil
}

func (s *Service) Export(ctx context.Context) (int, error) {
	sess := s.st.Session()
	if sess.IsProcessing {
		return 0, ErrBusy
	}
	return s.data.ExportSession(ctx, sess)
}

func (s *Service) Session() models.Session          { return s.st.Session() }
func (s *Service) Context() models.AggregatedContext { return s.st.Context() }

func (s *Service) runContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.timeout)
}
