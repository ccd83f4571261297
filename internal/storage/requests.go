package storage

import (
	"context"
	"fmt"
	"strings"

	"growwly/internal/apperr"
	"growwly/internal/models"
)

const statusPending = "pending"

func (s *Store) CreateAccessRequest(ctx context.Context, r models.AccessRequest) (models.AccessRequest, error) {
	r.Email = strings.TrimSpace(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Email == "" || r.FullName == "" || r.Reason == "" {
		return models.AccessRequest{}, apperr.Validation("missing required fields: email, fullName, and reason are required")
	}
	r.ID = newID()
	r.Status = statusPending
	r.CreatedAt = s.now()
	_, err := s.exec(ctx, `
		INSERT INTO access_requests (id, email, full_name, reason, company, portfolio_url, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Email, r.FullName, r.Reason, r.Company, r.PortfolioURL, r.Status, r.CreatedAt)
	if err != nil {
		return models.AccessRequest{}, fmt.Errorf("insert access request: %w", err)
	}
	return r, nil
}

func (s *Store) CreatePasswordResetRequest(ctx context.Context, r models.PasswordResetRequest) (models.PasswordResetRequest, error) {
	r.Email = strings.TrimSpace(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Email == "" || r.FullName == "" || r.Reason == "" {
		return models.PasswordResetRequest{}, apperr.Validation("missing required fields: email, fullName, and reason are required")
	}
	r.ID = newID()
	r.Status = statusPending
	r.CreatedAt = s.now()
	_, err := s.exec(ctx, `
		INSERT INTO password_reset_requests (id, email, full_name, reason, additional_info, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Email, r.FullName, r.Reason, r.AdditionalInfo, r.Status, r.CreatedAt)
	if err != nil {
		return models.PasswordResetRequest{}, fmt.Errorf("insert password reset request: %w", err)
	}
	return r, nil
}
