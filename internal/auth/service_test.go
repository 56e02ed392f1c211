package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vedant-labs/backend-bazaar/internal/common"
)

type memoryStore struct {
	mu       sync.Mutex
	accounts map[string]Account
	sessions map[string]Session
	resets   map[string]ResetToken
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts: map[string]Account{},
		sessions: map[string]Session{},
		resets:   map[string]ResetToken{},
	}
}

func (m *memoryStore) CreateAccount(_ context.Context, a Account) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return Account{}, ErrNoRecord
		}
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.accounts[a.ID] = a
	return a, nil
}

func (m *memoryStore) AccountByEmail(_ context.Context, email string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return Account{}, ErrNoRecord
}

func (m *memoryStore) AccountByID(_ context.Context, id string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrNoRecord
	}
	return a, nil
}

func (m *memoryStore) UpdatePassword(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return ErrNoRecord
	}
	a.PasswordHash = hash
	m.accounts[userID] = a
	return nil
}

func (m *memoryStore) CreateSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.TokenHash] = s
	return nil
}

func (m *memoryStore) SessionByTokenHash(_ context.Context, hash string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[hash]
	if !ok {
		return Session{}, ErrNoRecord
	}
	return s, nil
}

func (m *memoryStore) RotateSession(_ context.Context, sessionID, newHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, s := range m.sessions {
		if s.ID == sessionID {
			delete(m.sessions, hash)
			s.TokenHash = newHash
			s.ExpiresAt = expiresAt
			m.sessions[newHash] = s
			return nil
		}
	}
	return ErrNoRecord
}

func (m *memoryStore) DeleteSessionByTokenHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, hash)
	return nil
}

func (m *memoryStore) DeleteSessionsByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, hash)
		}
	}
	return nil
}

func (m *memoryStore) CreateResetToken(_ context.Context, t ResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[t.Token] = t
	return nil
}

func (m *memoryStore) ResetTokenByValue(_ context.Context, token string) (ResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.resets[token]
	if !ok {
		return ResetToken{}, ErrNoRecord
	}
	return t, nil
}

func (m *memoryStore) ConsumeResetToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.resets[token]
	if !ok {
		return ErrNoRecord
	}
	t.Used = true
	m.resets[token] = t
	return nil
}

func newTestAuth(t *testing.T) (*Service, *memoryStore, *common.InMemoryEmail) {
	t.Helper()
	store := newMemoryStore()
	mail := &common.InMemoryEmail{}
	svc, err := NewService(Config{
		Store:        store,
		Secret:       "test-secret-please-rotate",
		Mail:         mail,
		ResetBaseURL: "https://shop.example.com",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store, mail
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Asha", "asha@example.com", "correct horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "asha@example.com" || len(user.Roles) == 0 {
		t.Fatalf("unexpected user: %+v", user)
	}

	result, err := svc.Login(ctx, "ASHA@example.com", "correct horse", "go-test", "127.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatalf("expected token pair, got %+v", result)
	}

	subject, err := svc.ParseAccessToken(result.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if subject != user.ID {
		t.Fatalf("expected subject %s, got %s", user.ID, subject)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Asha", "asha@example.com", "correct horse"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Login(ctx, "asha@example.com", "wrong", "", ""); err == nil {
		t.Fatalf("expected login failure")
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Asha", "asha@example.com", "correct horse"); err != nil {
		t.Fatalf("register: %v", err)
	}
	login, err := svc.Login(ctx, "asha@example.com", "correct horse", "", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatalf("expected rotated refresh token")
	}

	// The old token must be dead after rotation.
	if _, err := svc.Refresh(ctx, login.RefreshToken); err == nil {
		t.Fatalf("expected stale refresh token rejection")
	}
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Asha", "asha@example.com", "correct horse"); err != nil {
		t.Fatalf("register: %v", err)
	}
	login, err := svc.Login(ctx, "asha@example.com", "correct horse", "", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	svc.WithNow(func() time.Time { return time.Now().Add(time.Hour) })
	if _, err := svc.ParseAccessToken(login.AccessToken); err == nil {
		t.Fatalf("expected expired token rejection")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc, store, mail := newTestAuth(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, "Asha", "asha@example.com", "correct horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.InitiatePasswordReset(ctx, "asha@example.com"); err != nil {
		t.Fatalf("initiate reset: %v", err)
	}
	if len(mail.Outbox()) != 1 {
		t.Fatalf("expected reset email, got %d", len(mail.Outbox()))
	}

	var token string
	for tok := range store.resets {
		token = tok
	}
	if err := svc.ResetPassword(ctx, token, "brand new password"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := svc.Login(ctx, "asha@example.com", "correct horse", "", ""); err == nil {
		t.Fatalf("expected old password rejection")
	}
	if _, err := svc.Login(ctx, "asha@example.com", "brand new password", "", ""); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	// Token is single use.
	if err := svc.ResetPassword(ctx, token, "another password"); err == nil {
		t.Fatalf("expected used token rejection")
	}
	_ = user
}

func TestUnknownEmailResetIsSilent(t *testing.T) {
	svc, _, mail := newTestAuth(t)
	if err := svc.InitiatePasswordReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if len(mail.Outbox()) != 0 {
		t.Fatalf("expected no email for unknown address")
	}
}
