package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AngelCh415/agentic-analyst/internal/generation"
	"github.com/AngelCh415/agentic-analyst/internal/models"
)

type runState struct {
	query      string
	agg        models.AggregatedContext
	serialized string

	plan     []string
	insights []models.InsightResult
	recs     []models.CreativeRecommendation
}

// outcome is what a stage reports in its closing log entry.
type outcome struct {
	status  models.Status
	message string
	details any
}

type stageDef struct {
	announce string
	run      func(p *Pipeline, ctx context.Context, st *runState) outcome
	next     models.Stage
}

var stageTable = map[models.Stage]stageDef{
	models.StagePlanning: {
		announce: "Decomposing user query into analytical subtasks...",
		run:      (*Pipeline).plan,
		next:     models.StageRetrieving,
	},
	models.StageRetrieving: {
		announce: "Executing data retrieval steps...",
		run:      (*Pipeline).retrieve,
		next:     models.StageDiagnosing,
	},
	models.StageDiagnosing: {
		announce: "Analyzing patterns to identify root causes...",
		run:      (*Pipeline).diagnose,
		next:     models.StageRecommending,
	},
	models.StageRecommending: {
		announce: "Generating corrective creative assets for low performers...",
		run:      (*Pipeline).recommend,
		next:     models.StageDone,
	},
}

func (p *Pipeline) plan(ctx context.Context, st *runState) outcome {
	parsed, err := p.gen.Generate(ctx, generation.Request{
		Stage:             string(models.StagePlanning),
		Model:             p.models.Planner,
		SystemInstruction: plannerInstruction,
		Prompt:            fmt.Sprintf("User Query: %q.\n\nCreate a plan to analyze this.", st.query),
		Shape:             planShape,
	})
	var steps []string
	if err == nil {
		err = decodeMember(parsed, models.StagePlanning, "plan", &steps)
	}
	msg := "Plan generated successfully."
	if err != nil || len(steps) == 0 {
		if err != nil {
			p.failed(models.StagePlanning, err)
		}
		steps = append([]string(nil), fallbackPlan...)
		msg = "Planner unavailable, continuing with the default plan."
	}
	st.plan = steps
	return outcome{status: models.StatusCompleted, message: msg, details: map[string]any{"steps": steps}}
}

func (p *Pipeline) retrieve(ctx context.Context, st *runState) outcome {
	sleepCtx(ctx, p.delay)

	b, err := json.MarshalIndent(st.agg, "", "  ")
	if err != nil {
		b = []byte("{}")
	}
	st.serialized = string(b)
	return outcome{
		status:  models.StatusCompleted,
		message: "Data aggregated and structured for analysis.",
		details: fmt.Sprintf("Processed %d days of campaign data across %d campaigns.",
			len(st.agg.Trend), len(st.agg.CampaignStats)),
	}
}

func (p *Pipeline) diagnose(ctx context.Context, st *runState) outcome {
	parsed, err := p.gen.Generate(ctx, generation.Request{
		Stage:             string(models.StageDiagnosing),
		Model:             p.models.Diagnoser,
		SystemInstruction: insightInstruction,
		Prompt:            fmt.Sprintf("Analyze this data summary:\n%s\n\nQuery Context: %s", st.serialized, st.query),
		Shape:             insightShape,
	})
	insights := []models.InsightResult{}
	if err == nil {
		err = decodeMember(parsed, models.StageDiagnosing, "insights", &insights)
	}
	if err != nil {
		f := p.failed(models.StageDiagnosing, err)
		st.insights = []models.InsightResult{}
		return outcome{status: models.StatusError, message: "Insight generation failed: " + f.Error()}
	}
	if insights == nil {
		insights = []models.InsightResult{}
	}
	st.insights = insights
	return outcome{
		status:  models.StatusCompleted,
		message: fmt.Sprintf("Identified %d key insights.", len(insights)),
		details: insights,
	}
}

func (p *Pipeline) recommend(ctx context.Context, st *runState) outcome {
	st.recs = []models.CreativeRecommendation{}
	low := st.agg.Underperformers()
	if len(low) == 0 {
		return outcome{status: models.StatusCompleted, message: "No low performers to address."}
	}

	b, err := json.Marshal(low)
	if err != nil {
		f := p.failed(models.StageRecommending, err)
		return outcome{status: models.StatusError, message: "Creative generation failed: " + f.Error()}
	}
	parsed, err := p.gen.Generate(ctx, generation.Request{
		Stage:             string(models.StageRecommending),
		Model:             p.models.Creative,
		SystemInstruction: creativeInstruction,
		Prompt:            fmt.Sprintf("Low Performing Creatives: %s\n\nGenerate improved variations for these.", b),
		Shape:             recommendationShape,
	})
	recs := []models.CreativeRecommendation{}
	if err == nil {
		err = decodeMember(parsed, models.StageRecommending, "recommendations", &recs)
	}
	if err != nil {
		f := p.failed(models.StageRecommending, err)
		return outcome{status: models.StatusError, message: "Creative generation failed: " + f.Error()}
	}
	if recs == nil {
		recs = []models.CreativeRecommendation{}
	}
	st.recs = recs
	return outcome{
		status:  models.StatusCompleted,
		message: fmt.Sprintf("Generated %d new creative concepts.", len(recs)),
		details: recs,
	}
}

// decodeMember treats a present-but-mistyped member as a shape failure.
func decodeMember(parsed generation.Parsed, stage models.Stage, key string, v any) error {
	if err := parsed.Decode(key, v); err != nil {
		return &generation.Failure{Stage: string(stage), Kind: generation.KindShape, Err: fmt.Errorf("decode %s: %w", key, err)}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
