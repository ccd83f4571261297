// Package client talks to a growwly server over HTTP and the realtime
// websocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"growwly/internal/apperr"
	"growwly/internal/dayset"
	"growwly/internal/models"
	"growwly/internal/realtime"
	"growwly/internal/stats"
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		HTTP:    http.DefaultClient,
	}
}

// RecordQuery mirrors the query parameters of GET /api/progress.
type RecordQuery struct {
	Owner      string
	Visibility models.Visibility
	From       dayset.DayKey
	Limit      int
}

func (q RecordQuery) values() url.Values {
	v := url.Values{}
	if q.Owner != "" {
		v.Set("owner", q.Owner)
	}
	if q.Visibility != "" {
		v.Set("visibility", string(q.Visibility))
	}
	if q.From != "" {
		v.Set("from", q.From.String())
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// StatsReport is the server-computed view returned by /api/stats.
type StatsReport struct {
	Today   dayset.DayKey     `json:"today"`
	Summary stats.Summary     `json:"summary"`
	Period  stats.PeriodStats `json:"period"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do sends one request. Network failures and 5xx answers are transient;
// other statuses map back onto the apperr kinds.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return apperr.Validation("build request: %v", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperr.Transient(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(method, path, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Transient(fmt.Errorf("%s %s: decode response: %w", method, path, err))
	}
	return nil
}

func statusError(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := strings.TrimSpace(string(raw))
	var env errorEnvelope
	if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
		message = env.Error.Message
	}
	detail := fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, message)

	switch {
	case resp.StatusCode >= 500:
		return apperr.Transient(detail)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", apperr.ErrNotFound, detail)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", apperr.ErrUnauthorized, detail)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %w", apperr.ErrForbidden, detail)
	default:
		return fmt.Errorf("%w: %w", apperr.ErrValidation, detail)
	}
}

// Login starts a session and keeps its token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (models.Profile, error) {
	var out struct {
		User  models.Profile `json:"user"`
		Token string         `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return models.Profile{}, err
	}
	c.Token = out.Token
	return out.User, nil
}

// Me returns the profile behind the current token.
func (c *Client) Me(ctx context.Context) (models.Profile, error) {
	var out struct {
		Authenticated bool           `json:"authenticated"`
		User          models.Profile `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/status", nil, nil, &out); err != nil {
		return models.Profile{}, err
	}
	if !out.Authenticated {
		return models.Profile{}, apperr.ErrUnauthorized
	}
	return out.User, nil
}

func (c *Client) FetchRecords(ctx context.Context, q RecordQuery) ([]models.ProgressEntry, error) {
	var out []models.ProgressEntry
	if err := c.do(ctx, http.MethodGet, "/api/progress", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats fetches the caller's server-computed statistics.
func (c *Client) Stats(ctx context.Context, rng stats.Range) (StatsReport, error) {
	q := url.Values{}
	if rng != "" {
		q.Set("range", string(rng))
	}
	var out StatsReport
	err := c.do(ctx, http.MethodGet, "/api/stats/me", q, nil, &out)
	return out, err
}

func (c *Client) ListMessages(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []models.ChatMessage
	if err := c.do(ctx, http.MethodGet, "/api/chat", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage posts text. clientID is echoed back on the stored message and
// its realtime events.
func (c *Client) SendMessage(ctx context.Context, text, clientID string) (models.ChatMessage, error) {
	var out models.ChatMessage
	in := map[string]string{"message": text}
	if clientID != "" {
		in["client_id"] = clientID
	}
	err := c.do(ctx, http.MethodPost, "/api/chat", nil, in, &out)
	return out, err
}

func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Validation("message id is required")
	}
	return c.do(ctx, http.MethodDelete, "/api/chat/"+url.PathEscape(id), nil, nil, nil)
}

// Subscriber returns a realtime subscriber for tables sharing the client's
// credentials.
func (c *Client) Subscriber(tables ...realtime.Table) *realtime.Subscriber {
	header := http.Header{}
	if c.Token != "" {
		header.Set("Authorization", "Bearer "+c.Token)
	}
	return &realtime.Subscriber{URL: c.BaseURL, Tables: tables, Header: header}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, apperr.ErrTransient)
}
