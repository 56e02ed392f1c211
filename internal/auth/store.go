package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoRecord indicates the requested account or session does not exist.
var ErrNoRecord = errors.New("auth: record not found")

// Account is the stored user row.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is a persisted refresh token session.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	UserAgent string
	IP        string
	ExpiresAt time.Time
}

// ResetToken is a one-shot password reset token.
type ResetToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	Used      bool
}

// Store abstracts account and session persistence.
type Store interface {
	CreateAccount(ctx context.Context, a Account) (Account, error)
	AccountByEmail(ctx context.Context, email string) (Account, error)
	AccountByID(ctx context.Context, id string) (Account, error)
	UpdatePassword(ctx context.Context, userID, hash string) error

	CreateSession(ctx context.Context, s Session) error
	SessionByTokenHash(ctx context.Context, hash string) (Session, error)
	RotateSession(ctx context.Context, sessionID, newHash string, expiresAt time.Time) error
	DeleteSessionByTokenHash(ctx context.Context, hash string) error
	DeleteSessionsByUser(ctx context.Context, userID string) error

	CreateResetToken(ctx context.Context, t ResetToken) error
	ResetTokenByValue(ctx context.Context, token string) (ResetToken, error)
	ConsumeResetToken(ctx context.Context, token string) error
}

// PGStore implements Store on Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

var _ Store = (*PGStore)(nil)

func (s *PGStore) CreateAccount(ctx context.Context, a Account) (Account, error) {
	row := s.Pool.QueryRow(ctx,
		`INSERT INTO users (id, name, email, password_hash, roles)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, name, email, password_hash, roles, created_at, updated_at`,
		a.ID, a.Name, a.Email, a.PasswordHash, a.Roles)
	return scanAccount(row)
}

func (s *PGStore) AccountByEmail(ctx context.Context, email string) (Account, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, roles, created_at, updated_at
		 FROM users WHERE email = $1`, email)
	return scanAccount(row)
}

func (s *PGStore) AccountByID(ctx context.Context, id string) (Account, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, roles, created_at, updated_at
		 FROM users WHERE id = $1`, id)
	return scanAccount(row)
}

func (s *PGStore) UpdatePassword(ctx context.Context, userID, hash string) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, userID, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRecord
	}
	return nil
}

func (s *PGStore) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, refresh_token, user_agent, ip, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sess.ID, sess.UserID, sess.TokenHash, sess.UserAgent, sess.IP, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PGStore) SessionByTokenHash(ctx context.Context, hash string) (Session, error) {
	var sess Session
	err := s.Pool.QueryRow(ctx,
		`SELECT id, user_id, refresh_token, coalesce(user_agent, ''), coalesce(ip, ''), expires_at
		 FROM sessions WHERE refresh_token = $1`, hash).
		Scan(&sess.ID, &sess.UserID, &sess.TokenHash, &sess.UserAgent, &sess.IP, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNoRecord
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

func (s *PGStore) RotateSession(ctx context.Context, sessionID, newHash string, expiresAt time.Time) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE sessions SET refresh_token = $2, expires_at = $3 WHERE id = $1`,
		sessionID, newHash, expiresAt)
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRecord
	}
	return nil
}

func (s *PGStore) DeleteSessionByTokenHash(ctx context.Context, hash string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, hash)
	return err
}

func (s *PGStore) DeleteSessionsByUser(ctx context.Context, userID string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (s *PGStore) CreateResetToken(ctx context.Context, t ResetToken) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO password_resets (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		t.Token, t.UserID, t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}
	return nil
}

func (s *PGStore) ResetTokenByValue(ctx context.Context, token string) (ResetToken, error) {
	var t ResetToken
	err := s.Pool.QueryRow(ctx,
		`SELECT token, user_id, expires_at, used_at IS NOT NULL
		 FROM password_resets WHERE token = $1`, token).
		Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.Used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResetToken{}, ErrNoRecord
		}
		return ResetToken{}, fmt.Errorf("load reset token: %w", err)
	}
	return t, nil
}

func (s *PGStore) ConsumeResetToken(ctx context.Context, token string) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE password_resets SET used_at = now() WHERE token = $1`, token)
	return err
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Roles, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNoRecord
		}
		return Account{}, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}
