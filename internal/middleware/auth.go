package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tinyurl-be/internal/apperrors"
	"tinyurl-be/internal/entities"
	"tinyurl-be/internal/models"
	"tinyurl-be/internal/repository"
	"tinyurl-be/internal/service"
)

// Context keys set on authenticated requests
const (
	UserKey   = "user"
	UserIDKey = "user_id"
)

type OutcomeKind int

const (
	// Authenticated: the access token was valid
	Authenticated OutcomeKind = iota
	// Rotated: the refresh token was exchanged for a new pair
	Rotated
	// Rejected: the request must not proceed
	Rejected
)

func (k OutcomeKind) String() string {
	switch k {
	case Authenticated:
		return "authenticated"
	case Rotated:
		return "rotated"
	default:
		return "rejected"
	}
}

// Outcome is the result of evaluating a request's credentials
type Outcome struct {
	Kind    OutcomeKind
	User    *entities.User    // public projection; set unless Rejected
	Tokens  *models.TokenPair // Rotated only
	Status  int               // Rejected only
	Message string            // Rejected only
	Err     error             // cause of a Rejected(500)
}

func reject(status int, message string) Outcome {
	return Outcome{Kind: Rejected, Status: status, Message: message}
}

// Credentials are the tokens presented with a request
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// UserFinder looks a user up by ID
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*entities.User, error)
}

// Authenticate decides what to do with a request. A valid access token wins;
// otherwise a refresh token that matches the stored value is rotated.
// Verification failures only pick the branch, store failures reject with 500.
func Authenticate(ctx context.Context, tokens service.TokenService, users UserFinder, creds Credentials) Outcome {
	if creds.AccessToken != "" {
		if claims, err := tokens.VerifyAccess(creds.AccessToken); err == nil {
			user, err := users.FindByID(ctx, claims.Subject)
			if errors.Is(err, repository.ErrNotFound) {
				return reject(http.StatusNotFound, "User not found")
			}
			if err != nil {
				o := reject(http.StatusInternalServerError, "internal server error")
				o.Err = err
				return o
			}
			return Outcome{Kind: Authenticated, User: user.Public()}
		}
	}

	if creds.RefreshToken != "" {
		user, pair, err := tokens.Rotate(ctx, creds.RefreshToken)
		if err != nil {
			if apperrors.From(err).Kind == apperrors.Internal {
				o := reject(http.StatusInternalServerError, "internal server error")
				o.Err = err
				return o
			}
			return reject(http.StatusUnauthorized, "Invalid refresh token")
		}
		return Outcome{Kind: Rotated, User: user, Tokens: pair}
	}

	return reject(http.StatusUnauthorized, "Unauthorized request")
}

// CredentialsFrom reads the access token from its cookie or a Bearer header,
// and the refresh token from its cookie.
func CredentialsFrom(c *gin.Context) Credentials {
	var creds Credentials

	if token, err := c.Cookie(AccessTokenCookie); err == nil && token != "" {
		creds.AccessToken = token
	} else if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			creds.AccessToken = strings.TrimSpace(parts[1])
		}
	}

	if token, err := c.Cookie(RefreshTokenCookie); err == nil {
		creds.RefreshToken = token
	}

	return creds
}

type AuthMiddleware struct {
	tokens  service.TokenService
	users   UserFinder
	cookies CookieConfig
	logger  *slog.Logger
}

func NewAuthMiddleware(tokens service.TokenService, users UserFinder, cookies CookieConfig, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:  tokens,
		users:   users,
		cookies: cookies,
		logger:  logger,
	}
}

// RequireAuth returns a Gin middleware that applies the Authenticate outcome
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome := Authenticate(c.Request.Context(), m.tokens, m.users, CredentialsFrom(c))

		switch outcome.Kind {
		case Rotated:
			m.cookies.SetSessionCookies(c, *outcome.Tokens)
			m.logger.DebugContext(c.Request.Context(), "session refreshed", "user_id", outcome.User.ID)
		case Rejected:
			if outcome.Err != nil {
				m.logger.ErrorContext(c.Request.Context(), "authentication failed", "error", outcome.Err)
				CaptureError(c, outcome.Err)
			}
			c.AbortWithStatusJSON(outcome.Status, gin.H{"error": outcome.Message})
			return
		}

		c.Set(UserKey, outcome.User)
		c.Set(UserIDKey, outcome.User.ID)
		c.Next()
	}
}

// CurrentUser returns the user attached by RequireAuth
func CurrentUser(c *gin.Context) (*entities.User, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*entities.User)
	return user, ok && user != nil
}

// CurrentUserID returns the ID of the user attached by RequireAuth
func CurrentUserID(c *gin.Context) (string, bool) {
	id := c.GetString(UserIDKey)
	return id, id != ""
}
