// Package auth registers and authenticates users and issues the bearer
// tokens the rest of the API trusts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"recipeshare/common"
	"recipeshare/db"
	"recipeshare/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrEmailTaken   = fmt.Errorf("email is already registered: %w", common.ErrConflict)
	ErrUserNotFound = fmt.Errorf("user not found: %w", common.ErrNotFound)
)

// UserStore is the identity store the service needs.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type Service struct {
	users UserStore
	creds *Credentials
}

func NewService(users UserStore, creds *Credentials) *Service {
	return &Service{users: users, creds: creds}
}

// Register stores a new user with a hashed password and returns a token for it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	hash, err := s.creds.HashPassword(req.Password)
	if err != nil {
		return "", err
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicateKey) {
			return "", ErrEmailTaken
		}
		return "", fmt.Errorf("creating user: %w", err)
	}

	slog.InfoContext(ctx, "user registered", "userId", user.ID.Hex())
	return s.tokenFor(user)
}

// Login checks the password and returns a fresh token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("looking up user: %w", err)
	}

	if err := s.creds.ComparePassword(user.PasswordHash, req.Password); err != nil {
		return "", err
	}
	return s.tokenFor(user)
}

// CurrentUser loads the caller's own record.
func (s *Service) CurrentUser(ctx context.Context, callerID string) (*models.User, error) {
	id, err := primitive.ObjectIDFromHex(callerID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) tokenFor(u *models.User) (string, error) {
	return s.creds.IssueToken(Identity{UserID: u.ID.Hex(), Name: u.Name, Email: u.Email})
}
