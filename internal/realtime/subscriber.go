package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"growwly/internal/apperr"
	"growwly/internal/logger"
)

// Subscriber is the client side of the hub.
type Subscriber struct {
	// URL is the server base (http or https) or a ws URL to /ws.
	URL    string
	Tables []Table
	Header http.Header
	Dialer *websocket.Dialer
}

func (s *Subscriber) endpoint() (string, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", apperr.Validation("subscriber url %q: %v", s.URL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if !strings.HasSuffix(u.Path, "/ws") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	}
	q := u.Query()
	for _, t := range s.Tables {
		q.Add("table", string(t))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe connects and streams events until ctx ends or the connection
// drops; the channel is closed then. Delivery is at-least-once, so
// consumers must tolerate duplicates.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan Event, error) {
	endpoint, err := s.endpoint()
	if err != nil {
		return nil, err
	}
	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint, s.Header)
	if err != nil {
		if resp != nil {
			return nil, apperr.Transient(fmt.Errorf("dial %s: %s: %w", endpoint, resp.Status, err))
		}
		return nil, apperr.Transient(fmt.Errorf("dial %s: %w", endpoint, err))
	}

	events := make(chan Event, 16)
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	go func() {
		defer close(events)
		defer stop()
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					logger.Debug("realtime subscription ended", "error", err)
				}
				return
			}
			var ev Event
			if err := json.Unmarshal(data, &ev); err != nil {
				logger.Warn("discarding malformed realtime event", "error", err)
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
