package models

import (
	"time"

	"growwly/internal/apperr"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(s) {
	case VisibilityPublic, VisibilityPrivate:
		return Visibility(s), nil
	}
	return "", apperr.Validation("visibility %q must be public or private", s)
}

type Profile struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	FullName          string     `json:"full_name,omitempty"`
	AvatarURL         string     `json:"avatar_url,omitempty"`
	Bio               string     `json:"bio,omitempty"`
	Location          string     `json:"location,omitempty"`
	Website           string     `json:"website,omitempty"`
	ProfileVisibility Visibility `json:"profile_visibility"`
	ShowJoinDate      bool       `json:"show_join_date"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ProgressEntry is one logged achievement. Date is the calendar day the
// entry is attributed to; several entries may share a day.
type ProgressEntry struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Date        string     `json:"date"`
	Heading     string     `json:"heading"`
	Description string     `json:"description,omitempty"`
	VideoURL    string     `json:"video_url,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Visibility  Visibility `json:"visibility"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Author *Author `json:"profiles,omitempty"`
}

// Author is the profile subset embedded in feeds and chat.
type Author struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type InteractionType string

const (
	InteractionLike    InteractionType = "like"
	InteractionComment InteractionType = "comment"
)

type Interaction struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	ProgressID string          `json:"progress_id"`
	Type       InteractionType `json:"type"`
	Content    string          `json:"content,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// ClientID is the sender's temporary id, echoed back so the sender can
	// match the stored message to its unconfirmed copy.
	ClientID string `json:"client_id,omitempty"`

	Author *Author `json:"profiles,omitempty"`
}

// ItemID, ItemCreated and ItemVersion let chat messages be reconciled by
// backend id and update time.
func (m ChatMessage) ItemID() string { return m.ID }

func (m ChatMessage) ItemCreated() time.Time { return m.CreatedAt }

func (m ChatMessage) ItemVersion() time.Time { return m.UpdatedAt }

func (m ChatMessage) ItemTempID() string { return m.ClientID }

type Block struct {
	BlockerID string    `json:"blocker_id"`
	BlockedID string    `json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomAchievement struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	DateEarned    string    `json:"date_earned"`
	Category      string    `json:"category,omitempty"`
	Issuer        string    `json:"issuer,omitempty"`
	CertificateID string    `json:"certificate_id,omitempty"`
	ExternalLink  string    `json:"external_link,omitempty"`
	Skills        []string  `json:"skills,omitempty"`
	IsFeatured    bool      `json:"is_featured"`
	CreatedAt     time.Time `json:"created_at"`
}

// AchievementType is a milestone awarded automatically.
type AchievementType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Points      int    `json:"points"`
}

type UserAchievement struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	TypeName   string    `json:"type"`
	Title      string    `json:"title"`
	Icon       string    `json:"icon"`
	EarnedAt   time.Time `json:"earned_at"`
	IsFeatured bool      `json:"is_featured"`
}

type AccessRequest struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Reason       string    `json:"reason"`
	Company      string    `json:"company,omitempty"`
	PortfolioURL string    `json:"portfolioUrl,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type PasswordResetRequest struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"fullName"`
	Reason         string    `json:"reason"`
	AdditionalInfo string    `json:"additionalInfo,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
