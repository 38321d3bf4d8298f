package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/agentic-analyst/internal/agent"
	"github.com/AngelCh415/agentic-analyst/internal/analysis"
	"github.com/AngelCh415/agentic-analyst/internal/config"
	"github.com/AngelCh415/agentic-analyst/internal/generation"
	"github.com/AngelCh415/agentic-analyst/internal/ingest"
	"github.com/AngelCh415/agentic-analyst/internal/metrics"
	"github.com/AngelCh415/agentic-analyst/internal/store"
	"github.com/AngelCh415/agentic-analyst/internal/telemetry"
)

// NewRootCmd builds the analyst command tree.
func NewRootCmd() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:   "analyst",
		Short: "Agentic ad performance analyst",
		Long: `analyst aggregates daily ad campaign records and runs a four-stage
analysis (plan, retrieve, diagnose, recommend) backed by a generative model.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(newServeCmd(&cfg))
	root.AddCommand(newAnalyzeCmd(&cfg))
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is the wired object graph shared by serve and analyze.
type app struct {
	cfg  config.Config
	log  *slog.Logger
	obs  *telemetry.Metrics
	svc  *analysis.Service
	data *metrics.Service
}

func newLogger(cmd *cobra.Command, cfg config.Config, w io.Writer) *slog.Logger {
	lvl := cfg.LogLevel
	if s, _ := cmd.Flags().GetString("log-level"); s != "" {
		_ = lvl.UnmarshalText([]byte(s))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	backend, err := generation.NewBackend(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	if _, ok := backend.(generation.Unconfigured); ok {
		log.Warn("no generation API key set, stages will use their fallbacks")
	}
	obs := telemetry.New()
	gen := generation.NewClient(backend, cfg.GenerationRPS, log)
	pipe := agent.New(gen, log,
		agent.WithModels(agent.Models{
			Planner:   cfg.ModelFast,
			Diagnoser: cfg.ModelReasoning,
			Creative:  cfg.ModelCreative,
		}),
		agent.WithRetrieveDelay(cfg.RetrieveDelay),
		agent.WithMetrics(obs),
	)

	cl := ingest.NewHTTPClient(cfg.HTTPTimeout)
	etl := ingest.NewETL(ingest.NewSource(cl, cfg), cl, log, cfg)
	st := store.NewMemoryStore()
	svc := analysis.NewService(st, pipe, etl, log, obs, cfg.RunTimeout)
	if _, err := svc.Regenerate(ctx); err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, obs: obs, svc: svc, data: metrics.NewService(st)}, nil
}
