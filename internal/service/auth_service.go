package service

import (
	"context"
	"fmt"
	"time"

	"kairos_go/internal/domain"
	"kairos_go/internal/security"
)

// AuthService handles local registration, login, and Google sign-in.
type AuthService struct {
	users  domain.UserRepository
	tokens *security.TokenService
	hash   *security.PasswordHasher
}

func NewAuthService(users domain.UserRepository, tokens *security.TokenService, hash *security.PasswordHasher) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hash:   hash,
	}
}

type RegisterInput struct {
	Username  *string
	Anonymous bool
	Password  string
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
}

// GoogleUserInfo is the subset of the Google userinfo document we use.
type GoogleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Register creates a local account. Anonymous users may omit both username
// and password; named accounts need a unique username, non-anonymous ones a
// password.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*TokenResponse, error) {
	if !in.Anonymous && in.Password == "" {
		return nil, fmt.Errorf("%w: password required for non-anonymous users", domain.ErrInvalidInput)
	}

	if in.Username != nil && *in.Username != "" {
		existing, err := s.users.GetByUsername(ctx, *in.Username)
		if err != nil {
			return nil, fmt.Errorf("check username: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: username already exists", domain.ErrConflict)
		}
	}

	var hashed *string
	if in.Password != "" {
		h, err := s.hash.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hashed = &h
	}

	user := &domain.User{
		Username:       in.Username,
		IsAnonymous:    in.Anonymous,
		HashedPassword: hashed,
		Provider:       domain.ProviderLocal,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issueToken(user)
}

// Login verifies a username/password pair. A missing user, a passwordless
// account, and a wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || user.HashedPassword == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.hash.Verify(password, *user.HashedPassword); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.issueToken(user)
}

// OAuthLogin resolves a Google identity to a user and issues a token.
func (s *AuthService) OAuthLogin(ctx context.Context, info GoogleUserInfo) (*TokenResponse, error) {
	user, err := s.GetOrCreateGoogleUser(ctx, info)
	if err != nil {
		return nil, err
	}
	return s.issueToken(user)
}

// GetOrCreateGoogleUser finds a user by Google ID, then by email (linking an
// existing local account), and creates a new user otherwise. The profile
// picture URL is refreshed in every case.
func (s *AuthService) GetOrCreateGoogleUser(ctx context.Context, info GoogleUserInfo) (*domain.User, error) {
	user, err := s.users.GetByGoogleID(ctx, info.Sub)
	if err != nil {
		return nil, fmt.Errorf("lookup by google id: %w", err)
	}
	if user != nil {
		user.ProfilePictureURL = optional(info.Picture)
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("refresh google user: %w", err)
		}
		return user, nil
	}

	if info.Email != "" {
		user, err = s.users.GetByEmail(ctx, info.Email)
		if err != nil {
			return nil, fmt.Errorf("lookup by email: %w", err)
		}
		if user != nil {
			user.GoogleID = &info.Sub
			user.Provider = domain.ProviderGoogle
			user.ProfilePictureURL = optional(info.Picture)
			if err := s.users.Update(ctx, user); err != nil {
				return nil, fmt.Errorf("link google account: %w", err)
			}
			return user, nil
		}
	}

	newUser := &domain.User{
		Username:          optional(info.Name),
		Email:             optional(info.Email),
		GoogleID:          &info.Sub,
		Provider:          domain.ProviderGoogle,
		IsAnonymous:       false,
		ProfilePictureURL: optional(info.Picture),
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.users.Create(ctx, newUser); err != nil {
		return nil, fmt.Errorf("create google user: %w", err)
	}
	return newUser, nil
}

func (s *AuthService) issueToken(user *domain.User) (*TokenResponse, error) {
	token, err := s.tokens.CreateForUser(user.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		UserID:      user.ID.Hex(),
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
