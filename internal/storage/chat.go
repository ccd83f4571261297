package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"growwly/internal/apperr"
	"growwly/internal/models"
)

const (
	DefaultChatLimit = 100
	maxMessageLen    = 1000
	maxClientIDLen   = 64
)

// ListMessages returns the most recent limit messages in ascending order.
func (s *Store) ListMessages(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultChatLimit
	}
	rows, err := s.query(ctx, `
		SELECT m.id, m.user_id, m.message, m.client_id, m.created_at, m.updated_at,
			p.id, p.full_name, p.avatar_url, p.created_at
		FROM chat_messages m
		JOIN profiles p ON p.id = m.user_id
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := []models.ChatMessage{}
	for rows.Next() {
		var (
			m models.ChatMessage
			a models.Author
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Message, &m.ClientID, &m.CreatedAt, &m.UpdatedAt,
			&a.ID, &a.FullName, &a.AvatarURL, &a.CreatedAt); err != nil {
			return nil, err
		}
		m.Author = &a
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

// CreateMessage stores text for userID. clientID is the caller's temporary
// id for the message and is returned unchanged.
func (s *Store) CreateMessage(ctx context.Context, userID, text, clientID string) (models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ChatMessage{}, apperr.Validation("message is empty")
	}
	if len(text) > maxMessageLen {
		return models.ChatMessage{}, apperr.Validation("message exceeds %d characters", maxMessageLen)
	}
	if len(clientID) > maxClientIDLen {
		return models.ChatMessage{}, apperr.Validation("client_id exceeds %d characters", maxClientIDLen)
	}
	author, err := s.GetProfile(ctx, userID)
	if err != nil {
		return models.ChatMessage{}, err
	}

	now := s.now()
	m := models.ChatMessage{
		ID:        newID(),
		UserID:    userID,
		Message:   text,
		ClientID:  clientID,
		CreatedAt: now,
		UpdatedAt: now,
		Author: &models.Author{
			ID:        author.ID,
			FullName:  author.FullName,
			AvatarURL: author.AvatarURL,
			CreatedAt: author.CreatedAt,
		},
	}
	_, err = s.exec(ctx, `
		INSERT INTO chat_messages (id, user_id, message, client_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.UserID, m.Message, m.ClientID, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

// DeleteMessage removes a message written by userID.
func (s *Store) DeleteMessage(ctx context.Context, id, userID string) error {
	res, err := s.exec(ctx, `DELETE FROM chat_messages WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return affected(res, "chat message %s", id)
}
