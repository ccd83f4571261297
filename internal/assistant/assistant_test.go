package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growwly/internal/apperr"
	"growwly/internal/config"
)

type stubProvider struct {
	text   string
	err    error
	system string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, system, _ string) (string, string, error) {
	s.system = system
	return s.text, "stub-model", s.err
}

func TestReplyRequiresMessage(t *testing.T) {
	a := New(time.Second)
	_, err := a.Reply(context.Background(), Request{Message: "  "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestReplyWithoutProvidersFallsBack(t *testing.T) {
	var reasons []string
	a := New(time.Second)
	a.OnFallback = func(r string) { reasons = append(reasons, r) }

	r, err := a.Reply(context.Background(), Request{Message: "help", Type: "goal_setting"})
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.True(t, r.Fallback)
	assert.Equal(t, FallbackResponse("goal_setting"), r.Response)
	assert.NotEmpty(t, r.Error)
	assert.Equal(t, []string{ReasonNotConfigured}, reasons)
}

func TestReplyUsesFirstWorkingProvider(t *testing.T) {
	broken := &stubProvider{err: errors.New("boom")}
	empty := &stubProvider{text: "   "}
	good := &stubProvider{text: "Keep going! 🌱"}
	a := New(time.Second, broken, empty, good)

	r, err := a.Reply(context.Background(), Request{Message: "hi", Context: "user streak is 4"})
	require.NoError(t, err)
	assert.False(t, r.Fallback)
	assert.Equal(t, "Keep going! 🌱", r.Response)
	assert.Equal(t, "stub-model", r.Model)
	assert.Contains(t, good.system, "Current context: user streak is 4")
}

func TestReplyAllProvidersFailing(t *testing.T) {
	var reasons []string
	a := New(time.Second, &stubProvider{err: errors.New("down")})
	a.OnFallback = func(r string) { reasons = append(reasons, r) }

	r, err := a.Reply(context.Background(), Request{Message: "hi", Type: "unknown-kind"})
	require.NoError(t, err)
	assert.True(t, r.Fallback)
	assert.Equal(t, FallbackResponse("general"), r.Response)
	assert.Equal(t, []string{ReasonUpstream}, reasons)
}

func TestSystemPromptDefaultsContext(t *testing.T) {
	assert.True(t, strings.HasSuffix(SystemPrompt(""), "Current context: General conversation about personal growth"))
}

func TestFallbackResponsesCoverEveryType(t *testing.T) {
	for _, kind := range []string{"progress_analysis", "goal_setting", "motivation", "general"} {
		assert.NotEmpty(t, FallbackResponse(kind), kind)
	}
	assert.Equal(t, FallbackResponse("general"), FallbackResponse(""))
}

func TestGroqTriesModelsInOrder(t *testing.T) {
	var calls atomic.Int32
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		models = append(models, req.Model)
		assert.Equal(t, 300, req.MaxTokens)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
		}

		switch req.Model {
		case "a":
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		case "b":
			w.Write([]byte(`{"error":{"message":"model decommissioned","type":"invalid_request_error","code":"x"}}`))
		default:
			w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"You've got this!"}}]}`))
		}
	}))
	defer srv.Close()

	g := NewGroq("gsk_test", srv.URL, []string{"a", "b", "c"})
	require.True(t, g.Configured())

	text, model, err := g.Complete(context.Background(), "system", "hello")
	require.NoError(t, err)
	assert.Equal(t, "You've got this!", text)
	assert.Equal(t, "c", model)
	assert.Equal(t, []string{"a", "b", "c"}, models)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGroqAllModelsFailIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, _, err := NewGroq("gsk_test", srv.URL, []string{"a", "b"}).Complete(context.Background(), "s", "m")
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
}

func TestGroqKeyPrefix(t *testing.T) {
	assert.False(t, NewGroq("sk-openai", "", []string{"a"}).Configured())
	assert.False(t, NewGroq("gsk_x", "", nil).Configured())
}

func TestFromConfigSkipsInvalidGroqKey(t *testing.T) {
	cfg := config.Default().Assistant
	cfg.GroqAPIKey = "not-a-groq-key"
	a, err := FromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, a.providers)

	cfg.GroqAPIKey = "gsk_live"
	a, err = FromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Len(t, a.providers, 1)
}

func TestGeminiProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-test:generateContent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Small steps count."}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "test-key", "gemini-test", srv.URL)
	require.NoError(t, err)
	text, model, err := g.Complete(context.Background(), SystemPrompt(""), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Small steps count.", text)
	assert.Equal(t, "gemini-test", model)

	_, err = NewGemini(context.Background(), "", "", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
