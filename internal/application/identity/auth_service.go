package identity

import (
	"context"
	"time"

	"github.com/fmca/voucher-backend/internal/domain/identity"
	"github.com/fmca/voucher-backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenIssuer mints and verifies the token pair handed to clients
type TokenIssuer interface {
	Issue(user *identity.User) (access string, refresh string, err error)
	VerifyRefresh(token string) (userID string, err error)
}

// LoginResult carries the authenticated user and their token pair
type LoginResult struct {
	User         *identity.User `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

// AuthService authenticates users and refreshes token pairs
type AuthService struct {
	users  identity.UserRepository
	tokens TokenIssuer
	log    *zap.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(users identity.UserRepository, tokens TokenIssuer, log *zap.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log}
}

// Login verifies credentials and issues a token pair. Deactivated
// accounts are rejected with the same error as a bad password so the
// response does not leak account state.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active || !user.CheckPassword(password) {
		return nil, shared.NewDomainError("UNAUTHORIZED_ACTION", "Invalid email or password")
	}

	access, refresh, err := s.tokens.Issue(user)
	if err != nil {
		return nil, shared.NewDomainError("STORAGE_ERROR", "Failed to issue tokens")
	}

	user.RecordLogin(time.Now())
	if err := s.users.Save(ctx, user); err != nil {
		s.log.Warn("failed to record login time", zap.String("email", email), zap.Error(err))
	}

	return &LoginResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new token pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	subject, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, shared.NewDomainError("UNAUTHORIZED_ACTION", "Invalid refresh token")
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, shared.NewDomainError("UNAUTHORIZED_ACTION", "Invalid refresh token")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		return nil, shared.NewDomainError("UNAUTHORIZED_ACTION", "Account is not active")
	}

	access, refresh, err := s.tokens.Issue(user)
	if err != nil {
		return nil, shared.NewDomainError("STORAGE_ERROR", "Failed to issue tokens")
	}

	return &LoginResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}
