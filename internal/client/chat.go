package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"growwly/internal/apperr"
	"growwly/internal/logger"
	"growwly/internal/models"
	"growwly/internal/realtime"
	"growwly/internal/reconcile"
)

const chatHistory = 100

// ChatAPI is the slice of Client a ChatSession needs.
type ChatAPI interface {
	ListMessages(ctx context.Context, limit int) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, text, clientID string) (models.ChatMessage, error)
	DeleteMessage(ctx context.Context, id string) error
}

// ChatSession is the community chat as one user sees it: confirmed
// messages plus their own unconfirmed sends.
type ChatSession struct {
	api     ChatAPI
	user    models.Profile
	list    *reconcile.List[models.ChatMessage]
	fetches reconcile.Tracker
	now     func() time.Time

	mu       sync.Mutex
	onChange func()
}

func NewChatSession(api ChatAPI, user models.Profile) *ChatSession {
	return &ChatSession{
		api:  api,
		user: user,
		list: reconcile.NewList[models.ChatMessage](),
		now:  time.Now,
	}
}

// OnChange registers fn to run after every visible change.
func (s *ChatSession) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *ChatSession) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *ChatSession) Visible() []models.ChatMessage { return s.list.Visible() }

// IsPending reports whether m is still awaiting confirmation.
func (s *ChatSession) IsPending(m models.ChatMessage) bool { return reconcile.IsTemp(m.ID) }

func (s *ChatSession) Input() string { return s.list.Input() }

func (s *ChatSession) SetInput(text string) { s.list.SetInput(text) }

// Refresh replaces the confirmed messages with the server's history.
// Results of a refresh overtaken by a newer one are dropped.
func (s *ChatSession) Refresh(ctx context.Context) error {
	tok := s.fetches.Begin()
	mark := s.list.Mark()
	msgs, err := s.api.ListMessages(ctx, chatHistory)
	if err != nil {
		return err
	}
	if !s.list.ReplaceIfCurrent(msgs, mark, &s.fetches, tok) {
		logger.Debug("dropping superseded chat refresh")
		return nil
	}
	s.changed()
	return nil
}

// Send posts text. The message shows immediately under a temporary id and
// is swapped for the stored one on success, or as soon as an event or
// refresh carries the stored copy back under the same temporary id. On
// failure it disappears and text is restored to the input.
func (s *ChatSession) Send(ctx context.Context, text string) (models.ChatMessage, error) {
	s.list.SetInput(text)
	p, err := s.list.Submit(func(tempID, body string) models.ChatMessage {
		at := s.now().UTC()
		return models.ChatMessage{
			ID:        tempID,
			UserID:    s.user.ID,
			Message:   body,
			CreatedAt: at,
			UpdatedAt: at,
			Author:    &models.Author{ID: s.user.ID, FullName: s.user.FullName, AvatarURL: s.user.AvatarURL},
		}
	})
	if err != nil {
		return models.ChatMessage{}, err
	}
	s.changed()

	msg, err := s.api.SendMessage(ctx, p.Input, p.TempID)
	if err != nil {
		s.list.Fail(p.TempID)
		s.changed()
		return models.ChatMessage{}, fmt.Errorf("send message: %w", err)
	}
	s.list.Confirm(p.TempID, msg)
	s.changed()
	return msg, nil
}

// Delete removes id at once and puts it back if the server refuses.
func (s *ChatSession) Delete(ctx context.Context, id string) error {
	if reconcile.IsTemp(id) {
		return apperr.Validation("message %s is not confirmed yet", id)
	}
	restore, ok := s.list.Remove(id)
	if !ok {
		return apperr.NotFound("message %s", id)
	}
	s.changed()
	if err := s.api.DeleteMessage(ctx, id); err != nil {
		restore()
		s.changed()
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// Apply folds one realtime event into the list. Inserts also schedule a
// refresh so ordering and authors come from the server.
func (s *ChatSession) Apply(ctx context.Context, ev realtime.Event) error {
	if ev.Table != realtime.TableChat {
		return nil
	}
	switch ev.Kind {
	case realtime.KindDelete:
		s.list.Apply(reconcile.Event[models.ChatMessage]{Kind: reconcile.EventDelete, ID: ev.RecordID})
		s.changed()
		return nil
	case realtime.KindInsert, realtime.KindUpdate:
		var msg models.ChatMessage
		if err := json.Unmarshal(ev.Record, &msg); err != nil {
			return apperr.Validation("chat event %s: %v", ev.RecordID, err)
		}
		kind := reconcile.EventUpdate
		if ev.Kind == realtime.KindInsert {
			kind = reconcile.EventInsert
		}
		s.list.Apply(reconcile.Event[models.ChatMessage]{Kind: kind, Item: msg})
		s.changed()
		if kind == reconcile.EventInsert {
			return s.Refresh(ctx)
		}
		return nil
	}
	return nil
}

// Listen applies events until the channel closes or ctx ends. Failed
// refreshes are logged; the list keeps what it has.
func (s *ChatSession) Listen(ctx context.Context, events <-chan realtime.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := s.Apply(ctx, ev); err != nil {
				logger.Warn("apply chat event", "kind", ev.Kind, "id", ev.RecordID, "error", err)
			}
		}
	}
}
