package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"growwly/internal/apperr"
)

const defaultGeminiModel = "gemini-2.0-flash"

type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds a Gemini API provider. baseURL overrides the endpoint
// and is empty in production.
func NewGemini(ctx context.Context, apiKey, model, baseURL string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, apperr.Validation("gemini api key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Complete(ctx context.Context, system, message string) (string, string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(message), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		MaxOutputTokens:   maxTokens,
		Temperature:       genai.Ptr[float32](temperature),
		TopP:              genai.Ptr[float32](nucleusSamples),
	})
	if err != nil {
		return "", "", apperr.Upstream(fmt.Errorf("gemini %s: %w", g.model, err))
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", "", apperr.Upstream(errors.New("gemini: empty response"))
	}
	return text, g.model, nil
}
