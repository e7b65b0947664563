package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tally/internal/analytics"
	apperrors "tally/internal/errors"
	"tally/internal/model"
	"tally/internal/repository"
)

const bcryptCost = 10

// SessionIssuer mints and revokes session tokens.
type SessionIssuer interface {
	Issue(ctx context.Context, userID uint) (string, error)
	Revoke(ctx context.Context, token string) error
}

// AuthService handles registration, login, and logout.
type AuthService interface {
	// Register creates the user and opens a session, returning its token.
	Register(ctx context.Context, username, password string) (string, error)
	// Login verifies credentials and opens a fresh session.
	Login(ctx context.Context, username, password string) (string, error)
	// Logout revokes the session behind the token. Unknown tokens are fine.
	Logout(ctx context.Context, token string) error
}

type authService struct {
	users    repository.UserRepository
	sessions SessionIssuer
	events   *analytics.Client
	log      *logrus.Logger
}

// NewAuthService builds an AuthService.
func NewAuthService(users repository.UserRepository, sessions SessionIssuer, events *analytics.Client, log *logrus.Logger) AuthService {
	return &authService{users: users, sessions: sessions, events: events, log: log}
}

func (s *authService) Register(ctx context.Context, username, password string) (string, error) {
	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("check username: %w", err)
	}
	if existing != nil {
		return "", apperrors.ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// unique index may still trip under concurrent registration
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", apperrors.ErrUsernameTaken
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return "", err
	}

	s.events.Capture(distinctID(user.ID), "user_registered", nil)
	return token, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return "", apperrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", apperrors.ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return "", err
	}

	s.events.Capture(distinctID(user.ID), "user_logged_in", nil)
	return token, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

func distinctID(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
