package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Email        string
	FullName     string
	Role         string
	PasswordHash string
	TenantSlug   string
	TenantName   string
}

type SessionParams struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	CSRFToken string
	ExpiresAt time.Time
}

// SessionPrincipal is the joined session + user + tenant row the auth
// middleware resolves on every request.
type SessionPrincipal struct {
	SessionID  uuid.UUID
	UserID     uuid.UUID
	TenantID   uuid.UUID
	Email      string
	FullName   string
	Role       string
	TenantSlug string
	TenantName string
	CSRFToken  string
	ExpiresAt  time.Time
}

func (s *Store) ListActiveUsersByEmail(ctx context.Context, email string) ([]User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.tenant_id, u.email, u.full_name, u.role, u.password_hash, t.slug, t.name
		FROM users u
		JOIN tenants t ON t.id = u.tenant_id
		WHERE lower(u.email) = lower($1) AND u.is_active
		ORDER BY u.created_at
	`, email)
	if err != nil {
		return nil, fmt.Errorf("list users by email: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &u.TenantSlug, &u.TenantName); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) CreateSession(ctx context.Context, params SessionParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO sessions (tenant_id, user_id, token_hash, csrf_token, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, params.TenantID, params.UserID, params.TokenHash, params.CSRFToken, params.ExpiresAt).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

func (s *Store) GetSessionPrincipalByTokenHash(ctx context.Context, tokenHash string) (SessionPrincipal, error) {
	var p SessionPrincipal
	err := s.pool.QueryRow(ctx, `
		SELECT s.id, u.id, u.tenant_id, u.email, u.full_name, u.role,
		       t.slug, t.name, s.csrf_token, s.expires_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		JOIN tenants t ON t.id = u.tenant_id
		WHERE s.token_hash = $1
		  AND s.revoked_at IS NULL
		  AND s.expires_at > now()
		  AND u.is_active
	`, tokenHash).Scan(&p.SessionID, &p.UserID, &p.TenantID, &p.Email, &p.FullName, &p.Role,
		&p.TenantSlug, &p.TenantName, &p.CSRFToken, &p.ExpiresAt)
	if err != nil {
		return SessionPrincipal{}, err
	}
	return p, nil
}

func (s *Store) TouchSession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE sessions SET last_seen_at = now() WHERE id = $1`, sessionID)
	return err
}

func (s *Store) RevokeSessionByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sessions SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL
	`, tokenHash)
	return err
}

func (s *Store) RevokeSessionByID(ctx context.Context, sessionID, tenantID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sessions SET revoked_at = now()
		WHERE id = $1 AND tenant_id = $2 AND revoked_at IS NULL
	`, sessionID, tenantID)
	return err
}
