package service

import (
	"context"
	"crypto/subtle"
	"errors"

	"tinyurl-be/internal/apperrors"
	"tinyurl-be/internal/entities"
	"tinyurl-be/internal/jwt"
	"tinyurl-be/internal/models"
	"tinyurl-be/internal/repository"
)

//go:generate mockgen -destination=../mocks/mock_service.go -package=mocks tinyurl-be/internal/service TokenService,MailQueue

// TokenService issues and validates session tokens. A user has at most one
// live refresh token: the value stored on the user record.
type TokenService interface {
	Issue(ctx context.Context, userID string) (*models.TokenPair, error)
	VerifyAccess(token string) (*jwt.AccessClaims, error)
	VerifyRefresh(token string) (*jwt.RefreshClaims, error)
	// Rotate exchanges a stored refresh token for a new pair and returns the
	// public projection of its owner.
	Rotate(ctx context.Context, refreshToken string) (*entities.User, *models.TokenPair, error)
	Revoke(ctx context.Context, userID string) error
}

type tokenService struct {
	users  repository.UserRepository
	signer *jwt.JWTService
}

// NewTokenService creates a new token service
func NewTokenService(users repository.UserRepository, signer *jwt.JWTService) TokenService {
	return &tokenService{users: users, signer: signer}
}

func (s *tokenService) Issue(ctx context.Context, userID string) (*models.TokenPair, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.New(apperrors.NotFound, "user not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to load user", err)
	}

	return s.issueFor(ctx, user)
}

func (s *tokenService) issueFor(ctx context.Context, user *entities.User) (*models.TokenPair, error) {
	access, err := s.signer.GenerateAccessToken(user.ID, user.Email, user.Username)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to generate access token", err)
	}

	refresh, err := s.signer.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to generate refresh token", err)
	}

	// Overwrites any previous value, ending other sessions
	if err := s.users.SetRefreshToken(ctx, user.ID, &refresh); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.New(apperrors.NotFound, "user not found")
		}
		return nil, apperrors.Wrap(apperrors.Internal, "failed to store refresh token", err)
	}

	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *tokenService) VerifyAccess(token string) (*jwt.AccessClaims, error) {
	return s.signer.ParseAccessToken(token)
}

func (s *tokenService) VerifyRefresh(token string) (*jwt.RefreshClaims, error) {
	return s.signer.ParseRefreshToken(token)
}

func (s *tokenService) Rotate(ctx context.Context, refreshToken string) (*entities.User, *models.TokenPair, error) {
	claims, err := s.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.Unauthorized, "invalid refresh token", err)
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperrors.New(apperrors.Unauthorized, "invalid refresh token")
	}
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.Internal, "failed to load user", err)
	}

	if user.RefreshToken == nil ||
		subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(refreshToken)) != 1 {
		return nil, nil, apperrors.New(apperrors.Unauthorized, "refresh token is expired or used")
	}

	pair, err := s.issueFor(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user.Public(), pair, nil
}

func (s *tokenService) Revoke(ctx context.Context, userID string) error {
	err := s.users.SetRefreshToken(ctx, userID, nil)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.New(apperrors.NotFound, "user not found")
	}
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "failed to revoke refresh token", err)
	}
	return nil
}
