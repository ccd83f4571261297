package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growwly/internal/config"
	"growwly/internal/dayset"
	"growwly/internal/mailer"
	"growwly/internal/models"
	"growwly/internal/realtime"
	"growwly/internal/storage"
)

var today = time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

type failingSender struct{ calls int }

func (f *failingSender) Send(context.Context, mailer.Email) error {
	f.calls++
	return errors.New("resend: 401 Unauthorized")
}

type fixture struct {
	t      *testing.T
	server *Server
	ts     *httptest.Server
	store  *storage.Store
	sender *failingSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := sql.Open(storage.DriverSQLite, fmt.Sprintf("file:srv_%s?mode=memory&cache=shared&_foreign_keys=on", name))
	require.NoError(t, err)
	store, err := storage.New(context.Background(), db, storage.DriverSQLite)
	require.NoError(t, err)

	hub := realtime.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	sender := &failingSender{}
	s := New(Deps{
		Config:   config.ServerConfig{AllowedOrigins: []string{"*"}},
		Store:    store,
		Hub:      hub,
		Notifier: &mailer.Notifier{Sender: sender, AdminEmail: "admin@example.com"},
		Calendar: dayset.NewCalendar(time.UTC),
		Now:      func() time.Time { return today },
	})
	ts := httptest.NewServer(s.Handler())

	t.Cleanup(func() {
		ts.Close()
		cancel()
		store.Close()
	})
	return &fixture{t: t, server: s, ts: ts, store: store, sender: sender}
}

func (f *fixture) do(method, path, token string, body any) (*http.Response, []byte) {
	f.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(f.t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, rd)
	require.NoError(f.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.ts.Client().Do(req)
	require.NoError(f.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(f.t, err)
	return resp, data
}

func (f *fixture) register(email string) authResponse {
	f.t.Helper()
	resp, body := f.do("POST", "/api/auth/register", "", credentials{Email: email, Password: "hunter22", FullName: strings.Split(email, "@")[0]})
	require.Equal(f.t, http.StatusCreated, resp.StatusCode, string(body))
	var out authResponse
	require.NoError(f.t, json.Unmarshal(body, &out))
	return out
}

func (f *fixture) logProgress(token, date string, vis models.Visibility) createdProgress {
	f.t.Helper()
	resp, body := f.do("POST", "/api/progress", token, storage.NewProgress{Date: date, Heading: "work " + date, Visibility: vis})
	require.Equal(f.t, http.StatusCreated, resp.StatusCode, string(body))
	var out createdProgress
	require.NoError(f.t, json.Unmarshal(body, &out))
	return out
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestAuthFlow(t *testing.T) {
	f := newFixture(t)
	alice := f.register("alice@example.com")
	assert.NotEmpty(t, alice.Token)
	assert.Equal(t, "alice@example.com", alice.User.Email)

	resp, body := f.do("POST", "/api/auth/register", "", credentials{Email: "alice@example.com", Password: "hunter22"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", decode[map[string]apiError](t, body)["error"].Code)

	resp, _ = f.do("POST", "/api/auth/login", "", credentials{Email: "alice@example.com", Password: "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = f.do("POST", "/api/auth/login", "", credentials{Email: "alice@example.com", Password: "hunter22"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[authResponse](t, body)
	assert.NotEqual(t, alice.Token, login.Token)
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	_, body = f.do("GET", "/api/auth/status", login.Token, nil)
	assert.Equal(t, true, decode[map[string]any](t, body)["authenticated"])

	resp, _ = f.do("POST", "/api/auth/logout", login.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, body = f.do("GET", "/api/auth/status", login.Token, nil)
	assert.Equal(t, false, decode[map[string]any](t, body)["authenticated"])
}

func TestMutationsRequireSession(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do("POST", "/api/chat", "", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", decode[map[string]apiError](t, body)["error"].Code)

	resp, _ = f.do("POST", "/api/chat", "not-a-token", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProgressStatsAndPrivacy(t *testing.T) {
	f := newFixture(t)
	alice := f.register("alice@example.com")
	bob := f.register("bob@example.com")

	first := f.logProgress(alice.Token, "2024-03-08", models.VisibilityPublic)
	require.Len(t, first.NewAchievements, 1)
	assert.Equal(t, "first_entry", first.NewAchievements[0].TypeName)

	f.logProgress(alice.Token, "2024-03-09", models.VisibilityPublic)
	third := f.logProgress(alice.Token, "2024-03-10", models.VisibilityPrivate)
	assert.Equal(t, "streak_3", third.NewAchievements[0].TypeName)
	f.logProgress(alice.Token, "2024-03-10", models.VisibilityPublic)

	resp, body := f.do("GET", "/api/stats/me?range=week", alice.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	mine := decode[statsResponse](t, body)
	assert.Equal(t, dayset.DayKey("2024-03-10"), mine.Today)
	assert.Equal(t, 4, mine.Summary.Total)
	assert.Equal(t, 1, mine.Summary.Private)
	assert.Equal(t, 3, mine.Summary.CurrentStreak)
	assert.Equal(t, 3, mine.Summary.UniqueDays)
	require.Len(t, mine.Period.Buckets, 3)
	assert.Equal(t, 1, mine.Period.Buckets[2].Private)

	_, body = f.do("GET", "/api/stats/users/"+alice.User.ID, bob.Token, nil)
	theirs := decode[statsResponse](t, body)
	assert.Equal(t, 3, theirs.Summary.Total)
	assert.Equal(t, 0, theirs.Summary.Private)
	for _, b := range theirs.Period.Buckets {
		assert.Zero(t, b.Private)
	}

	resp, _ = f.do("GET", "/api/stats/users/missing", bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = f.do("GET", "/api/stats/me?range=decade", alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = f.do("GET", "/api/stats/community", "", nil)
	community := decode[map[string]int](t, body)
	assert.Equal(t, 3, community["total_public_entries"])
	assert.Equal(t, 1, community["active_users"])
	assert.Equal(t, 1, community["today_entries"])

	_, body = f.do("GET", "/api/progress?owner="+alice.User.ID, bob.Token, nil)
	assert.Len(t, decode[[]models.ProgressEntry](t, body), 3)
	_, body = f.do("GET", "/api/progress?owner="+alice.User.ID+"&visibility=private", bob.Token, nil)
	assert.Empty(t, decode[[]models.ProgressEntry](t, body))
	_, body = f.do("GET", "/api/progress?owner="+alice.User.ID+"&from=2024-03-10", alice.Token, nil)
	assert.Len(t, decode[[]models.ProgressEntry](t, body), 2)
	resp, _ = f.do("GET", "/api/progress?from=yesterday", alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do("DELETE", "/api/progress/"+third.Entry.ID, bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = f.do("DELETE", "/api/progress/"+third.Entry.ID, alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = f.do("POST", "/api/progress", alice.Token, `{"date": "2024-13-01", "heading": "x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
	resp, _ = f.do("POST", "/api/progress", alice.Token, `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFeedLikesAndBlocks(t *testing.T) {
	f := newFixture(t)
	alice := f.register("alice@example.com")
	bob := f.register("bob@example.com")
	entry := f.logProgress(bob.Token, "2024-03-10", models.VisibilityPublic).Entry

	_, body := f.do("POST", "/api/progress/"+entry.ID+"/like", alice.Token, nil)
	assert.True(t, decode[likeResponse](t, body).Liked)
	resp, _ := f.do("POST", "/api/progress/"+entry.ID+"/comments", alice.Token, map[string]string{"content": "great"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	_, body = f.do("GET", "/api/progress/"+entry.ID+"/interactions", "", nil)
	assert.Len(t, decode[[]models.Interaction](t, body), 2)

	_, body = f.do("GET", "/api/feed", alice.Token, nil)
	assert.Len(t, decode[[]models.ProgressEntry](t, body), 1)

	resp, _ = f.do("POST", "/api/blocks/"+bob.User.ID, alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, body = f.do("GET", "/api/feed", alice.Token, nil)
	assert.Empty(t, decode[[]models.ProgressEntry](t, body))

	resp, _ = f.do("DELETE", "/api/blocks/"+bob.User.ID, alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body = f.do("GET", "/api/profiles/"+bob.User.ID, alice.Token, nil)
	assert.Empty(t, decode[models.Profile](t, body).Email)
	_, body = f.do("GET", "/api/profiles/"+bob.User.ID, bob.Token, nil)
	assert.Equal(t, "bob@example.com", decode[models.Profile](t, body).Email)
}

func TestChatPublishesRealtimeEvents(t *testing.T) {
	f := newFixture(t)
	alice := f.register("alice@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := (&realtime.Subscriber{URL: f.ts.URL, Tables: []realtime.Table{realtime.TableChat}}).Subscribe(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		resp, err := f.ts.Client().Get(f.ts.URL + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return strings.Contains(string(body), "growwly_realtime_clients 1")
	}, 2*time.Second, 10*time.Millisecond)

	resp, body := f.do("POST", "/api/chat", alice.Token, map[string]string{"message": "hello team", "client_id": "temp-abc"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	sent := decode[models.ChatMessage](t, body)
	assert.Equal(t, "temp-abc", sent.ClientID)

	select {
	case ev := <-events:
		assert.Equal(t, realtime.KindInsert, ev.Kind)
		got := decode[models.ChatMessage](t, ev.Record)
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "hello team", got.Message)
		assert.Equal(t, "temp-abc", got.ClientID, "the sender matches its pending copy by client id")
	case <-time.After(2 * time.Second):
		t.Fatal("no insert event")
	}

	_, body = f.do("GET", "/api/chat", "", nil)
	assert.Len(t, decode[[]models.ChatMessage](t, body), 1)

	resp, _ = f.do("DELETE", "/api/chat/"+sent.ID, alice.Token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	select {
	case ev := <-events:
		assert.Equal(t, realtime.KindDelete, ev.Kind)
		assert.Equal(t, sent.ID, ev.RecordID)
	case <-time.After(2 * time.Second):
		t.Fatal("no delete event")
	}
}

func TestAchievementsEndpoints(t *testing.T) {
	f := newFixture(t)
	alice := f.register("alice@example.com")
	f.logProgress(alice.Token, "2024-03-10", models.VisibilityPublic)

	_, body := f.do("GET", "/api/achievements", alice.Token, nil)
	ach := decode[achievementsResponse](t, body)
	assert.Len(t, ach.Earned, 1)
	assert.NotEmpty(t, ach.Available)

	resp, body := f.do("POST", "/api/custom-achievements", alice.Token, map[string]any{
		"title": "Marathon", "date_earned": "2024-02-01", "skills": []string{"endurance"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	created := decode[models.CustomAchievement](t, body)

	_, body = f.do("GET", "/api/custom-achievements", alice.Token, nil)
	assert.Len(t, decode[[]models.CustomAchievement](t, body), 1)

	resp, _ = f.do("DELETE", "/api/custom-achievements/"+created.ID, alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAssistantFunctionFallsBack(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do("POST", "/functions/ai-assistant", "", map[string]string{"message": "motivate me", "type": "motivation"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reply := decode[map[string]any](t, body)
	assert.Equal(t, true, reply["success"])
	assert.Equal(t, true, reply["fallback"])
	assert.NotEmpty(t, reply["response"])

	resp, _ = f.do("POST", "/functions/ai-assistant", "", map[string]string{"type": "motivation"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = f.do("POST", "/functions/ai-assistant", "", "{")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = f.do("GET", "/metrics", "", nil)
	assert.Contains(t, string(body), `growwly_assistant_fallbacks_total{reason="not_configured"} 1`)
}

func TestRequestFunctionsReportSuccessWhenEmailFails(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do("POST", "/functions/send-access-request", "", map[string]string{
		"email": "eve@example.com", "fullName": "Eve", "reason": "I want in",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	receipt := decode[requestReceipt](t, body)
	assert.True(t, receipt.Success)
	assert.Contains(t, receipt.EmailError, "401")
	assert.Equal(t, 1, f.sender.calls)

	resp, body = f.do("POST", "/functions/send-password-reset-request", "", map[string]string{"email": "eve@example.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "missing required fields")
	assert.Equal(t, 1, f.sender.calls)

	resp, _ = f.do("POST", "/functions/send-password-reset-request", "", map[string]string{
		"email": "eve@example.com", "fullName": "Eve", "reason": "forgot", "additionalInfo": "new laptop",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMusicFunction(t *testing.T) {
	f := newFixture(t)

	_, body := f.do("GET", "/functions/music-api?genre=lofi&limit=2", "", nil)
	list := decode[map[string]any](t, body)
	assert.EqualValues(t, 2, list["total"])

	_, body = f.do("GET", "/functions/music-api/random", "", nil)
	single := decode[map[string]any](t, body)
	_, isObject := single["data"].(map[string]any)
	assert.True(t, isObject)

	_, body = f.do("GET", "/functions/music-api/random?count=3", "", nil)
	many := decode[map[string]any](t, body)
	assert.Len(t, many["data"], 3)

	resp, _ := f.do("GET", "/functions/music-api/42", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = f.do("POST", "/functions/music-api", "", map[string]string{"title": "T", "artist": "A"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "url")

	resp, _ = f.do("POST", "/functions/music-api", "", map[string]string{"title": "T", "artist": "A", "url": "https://x"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCORSAndOperationalEndpoints(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.ts.URL+"/api/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://growwly.app")
	resp, err := f.ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, body := f.do("GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "ok")

	resp, _ = f.do("GET", "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = f.do("GET", "/metrics", "", nil)
	assert.Contains(t, string(body), `growwly_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestAllowedOriginsList(t *testing.T) {
	s := &Server{cfg: config.ServerConfig{AllowedOrigins: []string{"https://growwly.app"}}}
	assert.Equal(t, "https://growwly.app", s.allowedOrigin("https://growwly.app"))
	assert.Empty(t, s.allowedOrigin("https://evil.example"))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	f := newFixture(t)
	srv := New(Deps{
		Config: config.ServerConfig{ShutdownTimeout: config.Duration{Duration: time.Second}},
		Store:  f.store,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
