package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"growwly/internal/apperr"
	"growwly/internal/logger"
)

const (
	groqKeyPrefix  = "gsk_"
	maxTokens      = 300
	temperature    = 0.8
	nucleusSamples = 0.9
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Groq talks to an OpenAI-compatible chat completions endpoint, trying
// each model in order until one answers.
type Groq struct {
	APIKey  string
	BaseURL string
	Models  []string
	HTTP    *http.Client
}

func NewGroq(apiKey, baseURL string, models []string) *Groq {
	return &Groq{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Models:  models,
		HTTP:    http.DefaultClient,
	}
}

func (g *Groq) Name() string { return "groq" }

// Configured reports whether the key looks like a Groq key.
func (g *Groq) Configured() bool {
	return strings.HasPrefix(g.APIKey, groqKeyPrefix) && len(g.Models) > 0
}

func (g *Groq) Complete(ctx context.Context, system, message string) (string, string, error) {
	var errs []error
	for _, model := range g.Models {
		text, err := g.complete(ctx, model, system, message)
		if err == nil {
			return text, model, nil
		}
		logger.Debug("groq model failed", "model", model, "error", err)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", "", apperr.Upstream(errors.Join(errs...))
}

func (g *Groq) complete(ctx context.Context, model, system, message string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: message},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        nucleusSamples,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%s: %s: %s", model, resp.Status, strings.TrimSpace(string(snippet)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", model, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%s: %s", model, out.Error.Message)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%s: empty response", model)
	}
	return out.Choices[0].Message.Content, nil
}
