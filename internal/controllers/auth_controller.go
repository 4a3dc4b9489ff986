package controllers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tinyurl-be/internal/middleware"
	"tinyurl-be/internal/models"
	"tinyurl-be/internal/service"
)

type AuthController struct {
	authService  service.AuthService
	tokenService service.TokenService
	cookies      middleware.CookieConfig
	logger       *slog.Logger
}

func NewAuthController(authService service.AuthService, tokenService service.TokenService, cookies middleware.CookieConfig, logger *slog.Logger) *AuthController {
	return &AuthController{
		authService:  authService,
		tokenService: tokenService,
		cookies:      cookies,
		logger:       logger,
	}
}

// Register handles POST /user/register
func (ac *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, ac.logger, err.WithStatus(http.StatusUnauthorized))
		return
	}

	user, err := ac.authService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Login handles POST /user/login
func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, ac.logger, err)
		return
	}

	result, err := ac.authService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	ac.cookies.SetSessionCookies(c, result.Tokens)
	c.JSON(http.StatusOK, result.User)
}

// Me handles GET /user/me and echoes the access token claims
func (ac *AuthController) Me(c *gin.Context) {
	token, err := c.Cookie(middleware.AccessTokenCookie)
	if err != nil || token == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Access token not found"})
		return
	}

	claims, err := ac.tokenService.VerifyAccess(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired access token"})
		return
	}

	c.JSON(http.StatusOK, claims)
}

// Logout handles POST /user/logout (protected)
func (ac *AuthController) Logout(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized request"})
		return
	}

	if err := ac.authService.Logout(c.Request.Context(), userID); err != nil {
		respondError(c, ac.logger, err)
		return
	}

	ac.cookies.ClearSessionCookies(c)
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Logged out successfully"})
}

// ForgotPassword handles POST /user/forgotPassword
func (ac *AuthController) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, ac.logger, err.WithStatus(http.StatusUnauthorized))
		return
	}

	if err := ac.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{
		Message: "If an account exists for this email, a password reset link has been sent.",
	})
}

// ResetPassword handles POST /user/resetPassword/:id. The reset token comes
// from the body or the ?token= query parameter of the emailed link.
func (ac *AuthController) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Token == "" {
		req.Token = c.Query("token")
	}

	err := ac.authService.ResetPassword(c.Request.Context(), c.Param("id"), req.Token, req.Password)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Password reset successfully."})
}
