// Package session mints and validates the opaque tokens carried in the
// "session" cookie. Tokens are random, stored server-side, and revocable;
// expired rows are deleted lazily on the next lookup.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "tally/internal/errors"
	"tally/internal/model"
	"tally/internal/repository"
)

// tokenBytes is the entropy per session token; hex-encoded to 64 chars.
const tokenBytes = 32

// Manager issues, resolves, and revokes sessions.
type Manager struct {
	repo repository.SessionRepository
	ttl  time.Duration
	log  *logrus.Logger

	now func() time.Time // overridable in tests
}

// NewManager creates a session manager with the given lifetime.
func NewManager(repo repository.SessionRepository, ttl time.Duration, log *logrus.Logger) *Manager {
	return &Manager{
		repo: repo,
		ttl:  ttl,
		log:  log,
		now:  time.Now,
	}
}

// Issue creates a new session for the user and returns its token.
func (m *Manager) Issue(ctx context.Context, userID uint) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	session := &model.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: m.now().Add(m.ttl),
	}
	if err := m.repo.Create(ctx, session); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Resolve maps a token to the owning user id. A missing or expired session
// yields ErrNoSession; expired rows are deleted on the way out. Store
// failures propagate so the request fails rather than proceeding
// unauthenticated.
func (m *Manager) Resolve(ctx context.Context, token string) (uint, error) {
	if token == "" {
		return 0, apperrors.ErrNoSession
	}
	session, err := m.repo.FindByToken(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("lookup session: %w", err)
	}
	if session == nil {
		return 0, apperrors.ErrNoSession
	}
	if !session.ExpiresAt.After(m.now()) {
		if err := m.repo.DeleteByToken(ctx, token); err != nil {
			m.log.WithError(err).Warn("failed to delete expired session")
		}
		return 0, apperrors.ErrNoSession
	}
	return session.UserID, nil
}

// Revoke deletes the session. Revoking an unknown token is a no-op.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.repo.DeleteByToken(ctx, token)
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
