package generation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func fixed(text string, err error) Backend {
	return BackendFunc(func(context.Context, string, string, string) (string, error) { return text, err })
}

var planShape = MustShape("plan", "plan")

func TestGenerateParsesObject(t *testing.T) {
	var gotModel, gotSystem, gotPrompt string
	b := BackendFunc(func(_ context.Context, model, system, prompt string) (string, error) {
		gotModel, gotSystem, gotPrompt = model, system, prompt
		return "```json\n{\"plan\": [\"a\", \"b\"], \"extra\": 1}\n```", nil
	})
	c := NewClient(b, 0, quietLogger())

	out, err := c.Generate(context.Background(), Request{
		Stage: "planning", Model: "m", SystemInstruction: "sys", Prompt: "p", Shape: planShape,
	})
	require.NoError(t, err)
	assert.Equal(t, "m", gotModel)
	assert.Equal(t, "sys", gotSystem)
	assert.Equal(t, "p", gotPrompt)

	var plan []string
	require.NoError(t, out.Decode("plan", &plan))
	assert.Equal(t, []string{"a", "b"}, plan)
}

func TestGenerateFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		b    Backend
		kind FailureKind
	}{
		{name: "backend error", b: fixed("", boom), kind: KindBackend},
		{name: "not json", b: fixed("Sure! Here is your plan.", nil), kind: KindMalformed},
		{name: "missing key", b: fixed(`{"steps": []}`, nil), kind: KindShape},
		{name: "array instead of object", b: fixed(`["plan"]`, nil), kind: KindShape},
		{name: "unconfigured", b: Unconfigured{}, kind: KindBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.b, 0, quietLogger())
			out, err := c.Generate(context.Background(), Request{Stage: "planning", Shape: planShape})
			require.Error(t, err)
			assert.Nil(t, out)

			var f *Failure
			require.ErrorAs(t, err, &f)
			assert.Equal(t, "planning", f.Stage)
			assert.Equal(t, tt.kind, f.Kind)
		})
	}
}

func TestGenerateBackendErrorIsUnwrappable(t *testing.T) {
	c := NewClient(Unconfigured{}, 0, quietLogger())
	_, err := c.Generate(context.Background(), Request{Stage: "diagnosing", Shape: planShape})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerateRespectsContextWhilePaced(t *testing.T) {
	calls := 0
	b := BackendFunc(func(context.Context, string, string, string) (string, error) {
		calls++
		return `{"plan":[]}`, nil
	})
	c := NewClient(b, 0.001, quietLogger())

	_, err := c.Generate(context.Background(), Request{Stage: "planning", Shape: planShape})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Generate(ctx, Request{Stage: "planning", Shape: planShape})
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, KindBackend, f.Kind)
	assert.Equal(t, 1, calls)
}

func TestAsFailureWrapsForeignErrors(t *testing.T) {
	f := AsFailure("recommending", errors.New("x"))
	assert.Equal(t, "recommending", f.Stage)
	assert.Equal(t, KindBackend, f.Kind)

	orig := &Failure{Stage: "planning", Kind: KindShape, Err: errors.New("y")}
	assert.Same(t, orig, AsFailure("other", orig))
}

func TestGeminiLive(t *testing.T) {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		t.Skip("GEMINI_API_KEY not set, skipping live test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	b, err := NewGemini(ctx, key)
	require.NoError(t, err)
	c := NewClient(b, 0, quietLogger())
	out, err := c.Generate(ctx, Request{
		Stage:             "planning",
		Model:             "gemini-2.5-flash",
		SystemInstruction: `Reply with JSON {"plan": [string]} listing two steps.`,
		Prompt:            "Why did ROAS drop last week?",
		Shape:             planShape,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "plan")
}
