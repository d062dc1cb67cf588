package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/storage"
)

// Service handles registration, login and token refresh on top of the
// user store. Password hashes never leave this package.
type Service struct {
	Store  storage.Store
	Tokens *TokenManager
}

type RegisterInput struct {
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	Email       string      `json:"email"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	PhoneNumber string      `json:"phone_number"`
	Role        models.Role `json:"role"`
}

// Register creates an account and returns it with a token pair. Username
// and password are required; role defaults to user. Duplicate usernames or
// phone numbers fail with ErrDuplicate and create nothing.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, TokenPair, error) {
	if in.Username == "" || in.Password == "" {
		return nil, TokenPair{}, fmt.Errorf("username and password are required: %w", models.ErrValidation)
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !in.Role.Valid() {
		return nil, TokenPair{}, fmt.Errorf("unknown role %q: %w", in.Role, models.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, TokenPair{}, err
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: string(hash),
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		Role:         in.Role,
		CreatedAt:    time.Now().UTC(),
		IsAvailable:  in.Role == models.RoleDriver,
	}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.Tokens.Pair(u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// Login authenticates by username or phone number. The identifier is tried
// as a username first, then as a phone number, so clients that put a phone
// number in the username field still log in.
func (s *Service) Login(ctx context.Context, identifier, password string) (*models.User, TokenPair, error) {
	if identifier == "" || password == "" {
		return nil, TokenPair{}, fmt.Errorf("identifier and password are required: %w", models.ErrValidation)
	}
	u, err := s.Store.UserByUsername(ctx, identifier)
	if errors.Is(err, models.ErrNotFound) {
		u, err = s.Store.UserByPhone(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, TokenPair{}, models.ErrAuthFailure
		}
		return nil, TokenPair{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, TokenPair{}, models.ErrAuthFailure
	}
	pair, err := s.Tokens.Pair(u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh exchanges a valid refresh token for a new access token. The user
// is reloaded so revoked accounts or changed roles take effect.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", err
	}
	u, err := s.Store.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrAuthFailure
		}
		return "", err
	}
	return s.Tokens.AccessToken(u)
}
