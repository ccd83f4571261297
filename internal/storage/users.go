package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"growwly/internal/apperr"
	"growwly/internal/models"
)

const minPasswordLen = 6

const profileColumns = `id, email, password_hash, full_name, avatar_url, bio, location, website,
	profile_visibility, show_join_date, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.FullName, &p.AvatarURL, &p.Bio,
		&p.Location, &p.Website, &p.ProfileVisibility, &p.ShowJoinDate, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) CreateUser(ctx context.Context, email, password, fullName string) (models.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return models.Profile{}, apperr.Validation("a valid email is required")
	}
	if len(password) < minPasswordLen {
		return models.Profile{}, apperr.Validation("password must be at least %d characters", minPasswordLen)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Profile{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	p := models.Profile{
		ID:                newID(),
		Email:             email,
		PasswordHash:      string(hashed),
		FullName:          strings.TrimSpace(fullName),
		ProfileVisibility: models.VisibilityPublic,
		ShowJoinDate:      true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	_, err = s.exec(ctx, `
		INSERT INTO profiles (id, email, password_hash, full_name, profile_visibility, show_join_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Email, p.PasswordHash, p.FullName, p.ProfileVisibility, p.ShowJoinDate, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return models.Profile{}, apperr.Validation("email %s is already registered", email)
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	return p, nil
}

// Authenticate checks the password and returns the profile. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *Store) Authenticate(ctx context.Context, email, password string) (models.Profile, error) {
	row := s.queryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)
	}
	if err != nil {
		return models.Profile{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return models.Profile{}, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)
	}
	return p, nil
}

type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Store) CreateSession(ctx context.Context, userID string, ttl time.Duration) (Session, error) {
	now := s.now()
	sess := Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	_, err := s.exec(ctx, `
		INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)
	`, sess.Token, sess.UserID, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// SessionUser resolves a live session token to its profile.
func (s *Store) SessionUser(ctx context.Context, token string) (models.Profile, error) {
	if token == "" {
		return models.Profile{}, apperr.ErrUnauthorized
	}
	row := s.queryRow(ctx, `
		SELECT p.id, p.email, p.password_hash, p.full_name, p.avatar_url, p.bio, p.location, p.website,
			p.profile_visibility, p.show_join_date, p.created_at, p.updated_at
		FROM sessions s JOIN profiles p ON p.id = s.user_id
		WHERE s.token = ? AND s.expires_at > ?
	`, token, s.now())
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, fmt.Errorf("%w: session expired or unknown", apperr.ErrUnauthorized)
	}
	return p, err
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.exec(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

func (s *Store) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	p, err := scanProfile(s.queryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, apperr.NotFound("profile %s", id)
	}
	return p, err
}

// ProfileUpdate carries the editable profile fields; nil leaves a field as is.
type ProfileUpdate struct {
	FullName          *string            `json:"full_name"`
	AvatarURL         *string            `json:"avatar_url"`
	Bio               *string            `json:"bio"`
	Location          *string            `json:"location"`
	Website           *string            `json:"website"`
	ProfileVisibility *models.Visibility `json:"profile_visibility"`
	ShowJoinDate      *bool              `json:"show_join_date"`
}

func (s *Store) UpdateProfile(ctx context.Context, id string, u ProfileUpdate) (models.Profile, error) {
	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return models.Profile{}, err
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&p.FullName, u.FullName)
	set(&p.AvatarURL, u.AvatarURL)
	set(&p.Bio, u.Bio)
	set(&p.Location, u.Location)
	set(&p.Website, u.Website)
	if u.ProfileVisibility != nil {
		vis, err := models.ParseVisibility(string(*u.ProfileVisibility))
		if err != nil {
			return models.Profile{}, err
		}
		p.ProfileVisibility = vis
	}
	if u.ShowJoinDate != nil {
		p.ShowJoinDate = *u.ShowJoinDate
	}
	p.UpdatedAt = s.now()

	_, err = s.exec(ctx, `
		UPDATE profiles
		SET full_name = ?, avatar_url = ?, bio = ?, location = ?, website = ?,
			profile_visibility = ?, show_join_date = ?, updated_at = ?
		WHERE id = ?
	`, p.FullName, p.AvatarURL, p.Bio, p.Location, p.Website, p.ProfileVisibility, p.ShowJoinDate, p.UpdatedAt, p.ID)
	if err != nil {
		return models.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}
