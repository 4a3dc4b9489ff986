package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tinyurl-be/internal/models"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookieConfig controls how session cookies are written
type CookieConfig struct {
	Secure        bool
	SameSite      http.SameSite
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

// SetSessionCookies writes both tokens as HttpOnly cookies
func (cc CookieConfig) SetSessionCookies(c *gin.Context, tokens models.TokenPair) {
	c.SetSameSite(cc.SameSite)
	c.SetCookie(AccessTokenCookie, tokens.AccessToken, int(cc.AccessMaxAge.Seconds()), "/", "", cc.Secure, true)
	c.SetCookie(RefreshTokenCookie, tokens.RefreshToken, int(cc.RefreshMaxAge.Seconds()), "/", "", cc.Secure, true)
}

// ClearSessionCookies expires both token cookies
func (cc CookieConfig) ClearSessionCookies(c *gin.Context) {
	c.SetSameSite(cc.SameSite)
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", cc.Secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", "", cc.Secure, true)
}
