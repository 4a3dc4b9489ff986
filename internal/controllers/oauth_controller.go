package controllers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tinyurl-be/internal/middleware"
	"tinyurl-be/internal/oauth"
	"tinyurl-be/internal/service"
)

const (
	oauthStateCookie = "oauthState"
	oauthStateMaxAge = 10 * time.Minute
)

type OAuthController struct {
	provider    oauth.Provider
	authService service.AuthService
	cookies     middleware.CookieConfig
	frontendURL string
	logger      *slog.Logger
}

func NewOAuthController(provider oauth.Provider, authService service.AuthService, cookies middleware.CookieConfig, frontendURL string, logger *slog.Logger) *OAuthController {
	return &OAuthController{
		provider:    provider,
		authService: authService,
		cookies:     cookies,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// Begin handles GET /auth/google
func (oc *OAuthController) Begin(c *gin.Context) {
	state := uuid.NewString()

	c.SetSameSite(http.SameSiteLaxMode) // must survive the cross-site return from the provider
	c.SetCookie(oauthStateCookie, state, int(oauthStateMaxAge.Seconds()), "/auth", "", oc.cookies.Secure, true)

	c.Redirect(http.StatusTemporaryRedirect, oc.provider.AuthCodeURL(state))
}

// Callback handles GET /auth/google/callback
func (oc *OAuthController) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	expected, _ := c.Cookie(oauthStateCookie)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, "", -1, "/auth", "", oc.cookies.Secure, true)

	state := c.Query("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		oc.logger.WarnContext(ctx, "oauth state mismatch")
		oc.failure(c, "invalid_state")
		return
	}

	code := c.Query("code")
	if code == "" {
		oc.failure(c, "access_denied")
		return
	}

	identity, err := oc.provider.Identify(ctx, code)
	if err != nil {
		oc.logger.WarnContext(ctx, "oauth identification failed", "error", err)
		oc.failure(c, "identification_failed")
		return
	}

	result, err := oc.authService.SignInWithProvider(ctx, identity)
	if err != nil {
		respondError(c, oc.logger, err)
		return
	}

	oc.cookies.SetSessionCookies(c, result.Tokens)
	c.Redirect(http.StatusFound, oc.frontendURL)
}

func (oc *OAuthController) failure(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, oc.frontendURL+"/login?error="+url.QueryEscape(reason))
}
