package service

import (
	"context"
	"fmt"
	"log/slog"

	"messagely/internal/common"
	"messagely/internal/common/security"
	"messagely/internal/platform/metrics"
)

// AuthService turns credentials into bearer tokens.
type AuthService struct {
	users   *UserService
	tokens  *security.TokenIssuer
	metrics metrics.Recorder
	logger  *slog.Logger
}

func NewAuthService(users *UserService, tokens *security.TokenIssuer, rec metrics.Recorder, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, metrics: rec, logger: logger}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	ok, err := s.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLogin(ok)
	if !ok {
		s.logger.InfoContext(ctx, "login rejected", "username", req.Username)
		return nil, fmt.Errorf("invalid username/password: %w", common.ErrUnauthenticated)
	}

	if err := s.users.UpdateLastLogin(ctx, req.Username); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	token, err := s.tokens.Issue(req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{Message: "Logged in!", Token: token}, nil
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	user, err := s.users.Register(ctx, req)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{Message: "Registered!", Token: token}, nil
}
