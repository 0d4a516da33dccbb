package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository"
	"github.com/jwalitptl/bp-admin-api/pkg/auth"
	"github.com/jwalitptl/bp-admin-api/pkg/errors"
	"github.com/jwalitptl/bp-admin-api/pkg/security"
)

type AuthService interface {
	Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error)
	Logout(ctx context.Context, claims *model.TokenClaims) error
	CurrentUser(ctx context.Context, userID int64) (*model.User, error)
}

type Service struct {
	userRepo repository.UserRepository
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
	logger   zerolog.Logger
}

func NewService(userRepo repository.UserRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher, logger zerolog.Logger) *Service {
	return &Service{
		userRepo: userRepo,
		jwtSvc:   jwtSvc,
		hasher:   hasher,
		logger:   logger,
	}
}

// Login never reveals whether the username exists.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.IsKind(err, errors.KindNotFound) {
			return nil, errors.Unauthorized("invalid credentials", nil)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.logger.Info().Str("username", req.Username).Msg("Failed login attempt")
		return nil, errors.Unauthorized("invalid credentials", nil)
	}
	if !user.IsActive {
		return nil, errors.Unauthorized("account is disabled", nil)
	}

	token, claims, err := s.jwtSvc.GenerateAccessToken(user)
	if err != nil {
		return nil, errors.Internal(err)
	}

	s.logger.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("User logged in")
	return &model.LoginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Unix(),
		User:      user,
		Message:   "Login successful",
	}, nil
}

func (s *Service) Logout(ctx context.Context, claims *model.TokenClaims) error {
	if claims == nil {
		return errors.Unauthorized("", nil)
	}
	s.jwtSvc.Revoke(claims)
	s.logger.Info().Int64("user_id", claims.UserID).Msg("User logged out")
	return nil
}

func (s *Service) CurrentUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return user, nil
}
