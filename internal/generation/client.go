// Package generation wraps the text-generation backend behind a single
// structured-generate call.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Backend is one request/response round-trip to a text-generation service.
type Backend interface {
	Complete(ctx context.Context, model, system, prompt string) (string, error)
}

type BackendFunc func(ctx context.Context, model, system, prompt string) (string, error)

func (f BackendFunc) Complete(ctx context.Context, model, system, prompt string) (string, error) {
	return f(ctx, model, system, prompt)
}

type Request struct {
	Stage             string
	Model             string
	SystemInstruction string
	Prompt            string
	Shape             Shape
}

// Parsed holds the top-level members of a JSON object response.
type Parsed map[string]json.RawMessage

// Decode unmarshals the member key into v. A missing member leaves v untouched.
func (p Parsed) Decode(key string, v any) error {
	raw, ok := p[key]
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, v)
}

type Client struct {
	b   Backend
	lim *rate.Limiter
	log *slog.Logger
}

// NewClient paces requests at rps per second. rps <= 0 disables pacing.
func NewClient(b Backend, rps float64, log *slog.Logger) *Client {
	lim := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		lim = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Client{b: b, lim: lim, log: log}
}

// Generate issues exactly one backend request and returns the parsed JSON
// object, or a *Failure. It never retries.
func (c *Client) Generate(ctx context.Context, req Request) (Parsed, error) {
	fail := func(kind FailureKind, err error) (Parsed, error) {
		c.log.Warn("generation failed",
			slog.String("stage", req.Stage),
			slog.String("kind", string(kind)),
			slog.String("err", err.Error()))
		return nil, &Failure{Stage: req.Stage, Kind: kind, Err: err}
	}

	if err := c.lim.Wait(ctx); err != nil {
		return fail(KindBackend, err)
	}

	start := time.Now()
	text, err := c.b.Complete(ctx, req.Model, req.SystemInstruction, req.Prompt)
	if err != nil {
		return fail(KindBackend, err)
	}
	c.log.Debug("generation response",
		slog.String("stage", req.Stage),
		slog.String("model", req.Model),
		slog.Int("bytes", len(text)),
		slog.Duration("latency", time.Since(start)))

	body := []byte(stripFence(text))
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fail(KindMalformed, fmt.Errorf("decode response: %w", err))
	}
	if err := req.Shape.validate(doc); err != nil {
		return fail(KindShape, fmt.Errorf("response does not match %s shape: %w", req.Shape.Name(), err))
	}
	var out Parsed
	if err := json.Unmarshal(body, &out); err != nil {
		return fail(KindShape, fmt.Errorf("response is not an object: %w", err))
	}
	return out, nil
}

// stripFence removes a surrounding ```json fence some models add even in
// JSON mode.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
