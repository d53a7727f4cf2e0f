package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"messagely/internal/common"
	"messagely/internal/common/security"
	"messagely/internal/domain/model"
	"messagely/internal/domain/repository"
)

// UserService owns credentials and user profiles.
type UserService struct {
	userRepo repository.UserRepository
	cache    repository.ProfileCache
	hasher   *security.PasswordHasher
	logger   *slog.Logger
	now      func() time.Time
}

func NewUserService(userRepo repository.UserRepository, cache repository.ProfileCache, hasher *security.PasswordHasher, logger *slog.Logger) *UserService {
	if cache == nil {
		cache = repository.NewNopProfileCache()
	}
	return &UserService{userRepo: userRepo, cache: cache, hasher: hasher, logger: logger, now: time.Now}
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Validate reports the first missing field. Passwords are taken verbatim, so
// only an empty one counts as missing.
func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return common.Invalid("username is required")
	}
	if r.Password == "" {
		return common.Invalid("password is required")
	}
	if len(r.Password) > security.MaxPasswordBytes {
		return common.Invalid("password must be at most %d bytes", security.MaxPasswordBytes)
	}
	fields := []struct{ name, value string }{
		{"first_name", r.FirstName},
		{"last_name", r.LastName},
		{"phone", r.Phone},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return common.Invalid("%s is required", f.name)
		}
	}
	return nil
}

func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hashedPassword, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		Username:       req.Username,
		HashedPassword: hashedPassword,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		JoinedAt:       now,
		LastLoginAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", "username", user.Username)
	return user.Public(), nil
}

// Authenticate reports whether password is correct for username. An unknown
// username is a false result, not an error.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, common.Invalid("username and password required")
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to find user: %w", err)
	}

	return s.hasher.Verify(password, user.HashedPassword)
}

// UpdateLastLogin stamps the current instant. Callers invoke it only after a
// successful Authenticate.
func (s *UserService) UpdateLastLogin(ctx context.Context, username string) error {
	if err := s.userRepo.UpdateLastLogin(ctx, username, s.now()); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, username); err != nil {
		s.logger.WarnContext(ctx, "profile cache invalidate failed", "username", username, "error", err)
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, username string) (*model.User, error) {
	if cached, ok, err := s.cache.Get(ctx, username); err != nil {
		s.logger.WarnContext(ctx, "profile cache read failed", "username", username, "error", err)
	} else if ok {
		return cached, nil
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	public := user.Public()
	// Set is skipped by the cache if UpdateLastLogin invalidated the entry
	// after the read above.
	if err := s.cache.Set(ctx, public); err != nil {
		s.logger.WarnContext(ctx, "profile cache write failed", "username", username, "error", err)
	}
	return public, nil
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for i := range users {
		users[i].HashedPassword = ""
	}
	return users, nil
}

// Exists is the "known user" check applied before protected operations.
func (s *UserService) Exists(ctx context.Context, username string) (bool, error) {
	if _, err := s.Get(ctx, username); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
