// Package mailer sends admin notifications through the Resend HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"growwly/internal/apperr"
)

const DefaultBaseURL = "https://api.resend.com"

type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

type Resend struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

func NewResend(apiKey, baseURL string) *Resend {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Resend{
		APIKey:  apiKey,
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Send posts e to /emails. Non-2xx responses are returned as upstream
// errors carrying the response body.
func (r *Resend) Send(ctx context.Context, e Email) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return apperr.Upstream(fmt.Errorf("resend: %w", err))
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.Upstream(fmt.Errorf("resend: %s: %s", resp.Status, strings.TrimSpace(string(text))))
	}
	return nil
}
