// Package server assembles the HTTP router from explicit dependencies.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"tinyurl-be/internal/cache"
	"tinyurl-be/internal/config"
	"tinyurl-be/internal/controllers"
	"tinyurl-be/internal/jwt"
	"tinyurl-be/internal/middleware"
	"tinyurl-be/internal/oauth"
	"tinyurl-be/internal/repository"
	"tinyurl-be/internal/service"
)

// Deps are the process-wide collaborators the router is built from
type Deps struct {
	Config *config.Config
	Logger *slog.Logger
	Users  repository.UserRepository
	Links  repository.LinkRepository
	Resets cache.Cache
	Mail   service.MailQueue
	// OAuth is nil when Google sign-in is not configured
	OAuth oauth.Provider
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config

	// Initialize JWT service
	signer := jwt.NewJWTService(
		cfg.AccessTokenSecret,
		cfg.AccessTokenExpiry,
		cfg.RefreshTokenSecret,
		cfg.RefreshTokenExpiry,
	)

	// Initialize services
	tokenService := service.NewTokenService(d.Users, signer)
	urlService := service.NewURLService(d.Links, d.Logger)
	authService := service.NewAuthService(d.Users, tokenService, d.Resets, d.Mail, service.AuthConfig{
		FrontendURL:      cfg.FrontendURL,
		ResetTokenExpiry: cfg.ResetTokenExpiry,
	}, d.Logger)

	cookies := middleware.CookieConfig{
		Secure:        cfg.CookieSecure,
		SameSite:      cfg.CookieSameSite,
		AccessMaxAge:  cfg.AccessTokenExpiry,
		RefreshMaxAge: cfg.RefreshTokenExpiry,
	}
	auth := middleware.NewAuthMiddleware(tokenService, d.Users, cookies, d.Logger)

	// Initialize controllers
	shortenerController := controllers.NewShortenerController(urlService, d.Logger)
	qrcodeController := controllers.NewQRCodeController(urlService, d.Logger)
	authController := controllers.NewAuthController(authService, tokenService, cookies, d.Logger)

	router := gin.New()
	router.Use(
		middleware.Recovery(d.Logger),
		middleware.RequestLogger(d.Logger),
		cors.New(cors.Config{
			AllowOrigins:     []string{cfg.FrontendURL},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	urls := router.Group("/url")
	{
		urls.GET("", shortenerController.ListURLs)
		urls.POST("", auth.RequireAuth(), shortenerController.CreateShortURL)
		urls.GET("/:shortID", shortenerController.RedirectToURL)
		urls.GET("/:shortID/qrcode", qrcodeController.GenerateQRCode)
	}

	users := router.Group("/user")
	{
		users.POST("/register", authController.Register)
		users.GET("/me", authController.Me)
		users.POST("/login", authController.Login)
		users.POST("/logout", auth.RequireAuth(), authController.Logout)
		users.POST("/forgotPassword", authController.ForgotPassword)
		users.POST("/resetPassword/:id", authController.ResetPassword)
	}

	if d.OAuth != nil {
		oauthController := controllers.NewOAuthController(d.OAuth, authService, cookies, cfg.FrontendURL, d.Logger)
		google := router.Group("/auth/google")
		{
			google.GET("", oauthController.Begin)
			google.GET("/callback", oauthController.Callback)
		}
	}

	return router
}
