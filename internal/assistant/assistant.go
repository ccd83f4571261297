// Package assistant answers growth-coaching chat messages through a chain of
// hosted language models, degrading to canned replies when none respond.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"growwly/internal/apperr"
	"growwly/internal/config"
	"growwly/internal/logger"
)

type Request struct {
	Message string `json:"message"`
	Context string `json:"context"`
	Type    string `json:"type"`
}

type Reply struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Model    string `json:"model,omitempty"`
	Fallback bool   `json:"fallback"`
	Error    string `json:"error,omitempty"`
}

// Provider completes one prompt. It returns the model that answered.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, message string) (text, model string, err error)
}

// Fallback reasons reported to OnFallback.
const (
	ReasonNotConfigured = "not_configured"
	ReasonUpstream      = "upstream"
)

type Assistant struct {
	providers []Provider
	timeout   time.Duration

	// OnFallback, when set, observes every canned reply.
	OnFallback func(reason string)
}

func New(timeout time.Duration, providers ...Provider) *Assistant {
	return &Assistant{providers: providers, timeout: timeout}
}

// FromConfig builds the Groq and Gemini providers the config enables.
func FromConfig(ctx context.Context, cfg config.AssistantConfig) (*Assistant, error) {
	var providers []Provider
	if groq := NewGroq(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.Models); groq.Configured() {
		providers = append(providers, groq)
	} else if cfg.GroqAPIKey != "" {
		logger.Warn("ignoring groq api key without gsk_ prefix")
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "")
		if err != nil {
			return nil, fmt.Errorf("gemini provider: %w", err)
		}
		providers = append(providers, gemini)
	}
	logger.Debug("assistant providers ready", "count", len(providers))
	return New(cfg.Timeout.Duration, providers...), nil
}

// Reply answers req. The only error is a validation error for an empty
// message; provider failures turn into a fallback reply.
func (a *Assistant) Reply(ctx context.Context, req Request) (Reply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Reply{}, apperr.Validation("message is required")
	}
	if len(a.providers) == 0 {
		return a.fallback(req.Type, ReasonNotConfigured, "Growwly AI is temporarily offline"), nil
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	system := SystemPrompt(req.Context)
	var errs []error
	for _, p := range a.providers {
		text, model, err := p.Complete(ctx, system, message)
		if err == nil && strings.TrimSpace(text) != "" {
			return Reply{Success: true, Response: text, Model: model}, nil
		}
		if err == nil {
			err = fmt.Errorf("%s: empty response", p.Name())
		}
		logger.Warn("assistant provider failed", "provider", p.Name(), "error", err)
		errs = append(errs, err)
	}

	logger.Warn("all assistant providers failed", "error", apperr.Upstream(errors.Join(errs...)))
	return a.fallback(req.Type, ReasonUpstream, "Growwly AI is temporarily offline, but still here to help!"), nil
}

func (a *Assistant) fallback(kind, reason, notice string) Reply {
	if a.OnFallback != nil {
		a.OnFallback(reason)
	}
	return Reply{Success: true, Response: FallbackResponse(kind), Fallback: true, Error: notice}
}
