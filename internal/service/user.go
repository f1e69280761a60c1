package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/macfarley/dream-weaver-backend/internal"
	"github.com/macfarley/dream-weaver-backend/internal/auth"
	"github.com/macfarley/dream-weaver-backend/internal/storage"
)

// ErrInvalidCredentials is deliberately outside the AppError taxonomy: login
// failures map to 401 at the boundary, not to the business-error kinds.
var ErrInvalidCredentials = errors.New("service: invalid credentials")

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Username string `json:"username" validate:"omitempty,min=3,max=32,alphanum"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
}

type UserService struct {
	users  storage.UserRepository
	tokens auth.Provider
	logger internal.Logger
}

func NewUserService(users storage.UserRepository, tokens auth.Provider, logger internal.Logger) *UserService {
	return &UserService{users: users, tokens: tokens, logger: logger}
}

// Register creates an account and returns it with a fresh token.
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*internal.User, string, error) {
	if err := validate.Struct(req); err != nil {
		return nil, "", internal.NewValidationError(err.Error())
	}

	if _, err := s.users.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, "", internal.NewConflictError("username already taken", nil)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, "", internal.NewSystemError("failed to check username", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", internal.NewSystemError("failed to hash password", err)
	}

	user := &internal.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		Role:         internal.RoleUser,
		JoinedAt:     time.Now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, "", internal.NewSystemError("failed to create user", err)
	}

	token, err := s.tokens.IssueToken(user)
	if err != nil {
		return nil, "", internal.NewSystemError("failed to issue token", err)
	}
	s.logger.Infof("user %s registered", user.Username)
	return user, token, nil
}

func (s *UserService) Login(ctx context.Context, req *LoginRequest) (*internal.User, string, error) {
	if err := validate.Struct(req); err != nil {
		return nil, "", internal.NewValidationError("username and password are required")
	}

	user, err := s.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", internal.NewSystemError("failed to fetch user", err)
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.logger.Warnf("failed login attempt for %s", req.Username)
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.IssueToken(user)
	if err != nil {
		return nil, "", internal.NewSystemError("failed to issue token", err)
	}
	return user, token, nil
}

func (s *UserService) Profile(ctx context.Context, userID string) (*internal.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, internal.NewNotFoundError("user not found")
		}
		return nil, internal.NewSystemError("failed to fetch user", err)
	}
	return user, nil
}

// UpdateProfile changes username and/or password on the caller's own record.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*internal.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, internal.NewValidationError(err.Error())
	}
	if req.Username == "" && req.Password == "" {
		return nil, internal.NewValidationError("nothing to update")
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != "" && req.Username != user.Username {
		if _, err := s.users.GetUserByUsername(ctx, req.Username); err == nil {
			return nil, internal.NewConflictError("username already taken", nil)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, internal.NewSystemError("failed to check username", err)
		}
		user.Username = req.Username
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, internal.NewSystemError("failed to hash password", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, internal.NewSystemError("failed to update user", err)
	}
	return user, nil
}
