package generation

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Gemini calls the Gemini API in JSON response mode.
type Gemini struct {
	client *genai.Client
}

func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client}, nil
}

func (g *Gemini) Complete(ctx context.Context, model, system, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}

// Unconfigured fails every call; used when no API key is available so the
// pipeline still runs on its fallbacks.
type Unconfigured struct{}

func (Unconfigured) Complete(context.Context, string, string, string) (string, error) {
	return "", ErrNotConfigured
}

// NewBackend returns the Gemini backend, or Unconfigured when apiKey is empty.
func NewBackend(ctx context.Context, apiKey string) (Backend, error) {
	if apiKey == "" {
		return Unconfigured{}, nil
	}
	return NewGemini(ctx, apiKey)
}
