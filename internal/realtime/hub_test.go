package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func startHub(t *testing.T) (*Hub, *httptest.Server, context.CancelFunc) {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	return hub, srv, cancel
}

func waitForClients(t *testing.T, n *atomic.Int64, want int64) {
	t.Helper()
	require.Eventually(t, func() bool { return n.Load() == want }, 2*time.Second, 10*time.Millisecond)
}

func receive(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestHubDeliversOnlySubscribedTables(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, srv, stopHub := startHub(t)
	var clients atomic.Int64
	hub.OnClients = func(n int) { clients.Store(int64(n)) }

	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscriber{URL: srv.URL, Tables: []Table{TableChat}}
	events, err := sub.Subscribe(ctx)
	require.NoError(t, err)
	waitForClients(t, &clients, 1)

	progress, err := Changed(TableProgress, KindInsert, "p1", map[string]string{"id": "p1"})
	require.NoError(t, err)
	hub.Publish(ctx, progress)

	chat, err := Changed(TableChat, KindInsert, "m1", map[string]string{"id": "m1", "message": "hi"})
	require.NoError(t, err)
	hub.Publish(ctx, chat)
	hub.Publish(ctx, Deleted(TableChat, "m1"))

	first := receive(t, events)
	assert.Equal(t, TableChat, first.Table)
	assert.Equal(t, KindInsert, first.Kind)
	var body map[string]string
	require.NoError(t, json.Unmarshal(first.Record, &body))
	assert.Equal(t, "hi", body["message"])

	second := receive(t, events)
	assert.Equal(t, KindDelete, second.Kind)
	assert.Equal(t, "m1", second.RecordID)

	cancel()
	for range events {
	}
	waitForClients(t, &clients, 0)

	stopHub()
	srv.Close()
}

func TestHubShutdownClosesSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, srv, stopHub := startHub(t)
	var clients atomic.Int64
	hub.OnClients = func(n int) { clients.Store(int64(n)) }

	events, err := (&Subscriber{URL: srv.URL}).Subscribe(context.Background())
	require.NoError(t, err)
	waitForClients(t, &clients, 1)

	stopHub()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber was not closed on hub shutdown")
	}

	// publishing after shutdown must not block
	hub.Publish(context.Background(), Deleted(TableChat, "x"))
	srv.Close()
}

func TestServeWSRejectsUnknownTable(t *testing.T) {
	hub := NewHub(nil)
	rec := httptest.NewRecorder()
	hub.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/ws?table=profiles", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscriberEndpoint(t *testing.T) {
	s := &Subscriber{URL: "https://growwly.example/", Tables: []Table{TableChat}}
	got, err := s.endpoint()
	require.NoError(t, err)
	assert.Equal(t, "wss://growwly.example/ws?table=chat_messages", got)
}
