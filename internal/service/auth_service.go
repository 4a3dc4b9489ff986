package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"

	"tinyurl-be/internal/apperrors"
	"tinyurl-be/internal/cache"
	"tinyurl-be/internal/entities"
	"tinyurl-be/internal/mailer"
	"tinyurl-be/internal/models"
	"tinyurl-be/internal/oauth"
	"tinyurl-be/internal/repository"
)

const (
	passwordHashCost  = 10
	minPasswordLength = 8
	resetTokenLength  = 32
	resetKeyPrefix    = "reset:"
)

// MailQueue accepts messages for asynchronous delivery
type MailQueue interface {
	Enqueue(msg mailer.Message) bool
}

// AuthService defines the interface for account and session business logic
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*entities.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error)
	Logout(ctx context.Context, userID string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, userID, resetToken, newPassword string) error
	SignInWithProvider(ctx context.Context, identity *oauth.Identity) (*models.AuthResult, error)
}

type AuthConfig struct {
	FrontendURL      string
	ResetTokenExpiry time.Duration
}

type authService struct {
	users  repository.UserRepository
	tokens TokenService
	resets cache.Cache
	mail   MailQueue
	cfg    AuthConfig
	logger *slog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	users repository.UserRepository,
	tokens TokenService,
	resets cache.Cache,
	mail MailQueue,
	cfg AuthConfig,
	logger *slog.Logger,
) AuthService {
	return &authService{
		users:  users,
		tokens: tokens,
		resets: resets,
		mail:   mail,
		cfg:    cfg,
		logger: logger,
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user account
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*entities.User, error) {
	username := normalizeUsername(req.Username)
	email := normalizeEmail(req.Email)
	if username == "" || email == "" || strings.TrimSpace(req.Password) == "" {
		return nil, apperrors.New(apperrors.Validation, "All fields are required").WithStatus(http.StatusUnauthorized)
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to check existing user", err)
	}
	if exists {
		return nil, apperrors.New(apperrors.Conflict, "User with email or username already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), passwordHashCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to hash password", err)
	}
	hashed := string(hash)

	user, err := s.users.Create(ctx, username, email, &hashed)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperrors.New(apperrors.Conflict, "User with email or username already exists")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to create user", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)

	return user.Public(), nil
}

// Login verifies credentials and starts a session
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperrors.New(apperrors.Validation, "Email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.New(apperrors.NotFound, "User does not exist")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to find user", err)
	}

	// Accounts created through OAuth have no password
	if user.PasswordHash == nil {
		return nil, apperrors.New(apperrors.Unauthorized, "Invalid user credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.New(apperrors.Unauthorized, "Invalid user credentials")
	}

	tokens, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &models.AuthResult{User: user.Public(), Tokens: *tokens}, nil
}

// Logout revokes the user's refresh token
func (s *authService) Logout(ctx context.Context, userID string) error {
	return s.tokens.Revoke(ctx, userID)
}

// ForgotPassword emails a single-use reset link. Unknown emails succeed
// silently so the endpoint cannot be used to probe for accounts.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.New(apperrors.Validation, "Email is required").WithStatus(http.StatusUnauthorized)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.DebugContext(ctx, "password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "failed to find user", err)
	}

	token, err := gonanoid.New(resetTokenLength)
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "failed to generate reset token", err)
	}
	if err := s.resets.Set(ctx, resetKeyPrefix+token, user.ID, s.cfg.ResetTokenExpiry); err != nil {
		return apperrors.Wrap(apperrors.Internal, "failed to store reset token", err)
	}

	link := fmt.Sprintf("%s/resetPassword/%s?token=%s", s.cfg.FrontendURL, user.ID, url.QueryEscape(token))
	if !s.mail.Enqueue(mailer.PasswordResetMessage(user.Email, link)) {
		s.logger.WarnContext(ctx, "password reset email not queued", "user_id", user.ID)
	}

	return nil
}

// ResetPassword replaces the password when resetToken was issued for userID.
// The token is consumed whether or not it matches.
func (s *authService) ResetPassword(ctx context.Context, userID, resetToken, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperrors.New(apperrors.Validation, "Password must be at least 8 characters long")
	}

	if _, err := uuid.Parse(userID); err != nil {
		return apperrors.New(apperrors.NotFound, "User not found")
	}
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.New(apperrors.NotFound, "User not found")
	}
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "failed to find user", err)
	}

	invalidToken := apperrors.New(apperrors.Unauthorized, "Invalid or expired reset token")
	if resetToken == "" {
		return invalidToken
	}
	owner, err := s.resets.Take(ctx, resetKeyPrefix+resetToken)
	if errors.Is(err, cache.ErrKeyNotFound) {
		return invalidToken
	}
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "failed to read reset token", err)
	}
	if owner != user.ID {
		return invalidToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), passwordHashCost)
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "failed to hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return apperrors.Wrap(apperrors.Internal, "failed to update password", err)
	}

	// Sessions opened with the old password end here
	if err := s.tokens.Revoke(ctx, user.ID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password reset", "user_id", user.ID)
	return nil
}

const maxUsernameAttempts = 5

// SignInWithProvider finds or creates the account for an external identity
// and starts a session.
func (s *authService) SignInWithProvider(ctx context.Context, identity *oauth.Identity) (*models.AuthResult, error) {
	email := normalizeEmail(identity.Email)
	if email == "" {
		return nil, apperrors.New(apperrors.Unauthorized, "identity provider returned no email")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		user, err = s.createProviderUser(ctx, identity.Name, email)
	}
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Wrap(apperrors.Internal, "failed to find user", err)
	}

	tokens, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &models.AuthResult{User: user.Public(), Tokens: *tokens}, nil
}

func (s *authService) createProviderUser(ctx context.Context, displayName, email string) (*entities.User, error) {
	base := usernameFrom(displayName, email)

	candidate := base
	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		if attempt > 0 {
			suffix, err := gonanoid.Generate("0123456789", 4)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.Internal, "failed to generate username", err)
			}
			candidate = base + suffix
		}

		user, err := s.users.Create(ctx, candidate, email, nil)
		if err == nil {
			s.logger.InfoContext(ctx, "user created from identity provider", "user_id", user.ID)
			return user, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Wrap(apperrors.Internal, "failed to create user", err)
		}

		// Lost a race on the email: the account exists now
		if existing, findErr := s.users.FindByEmail(ctx, email); findErr == nil {
			return existing, nil
		}
	}

	return nil, apperrors.New(apperrors.Conflict, "could not allocate a unique username")
}

// usernameFrom derives a lowercase username from a display name, falling
// back to the local part of the email.
func usernameFrom(displayName, email string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(displayName) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() > 0 {
		return b.String()
	}

	local, _, _ := strings.Cut(email, "@")
	return normalizeUsername(local)
}
