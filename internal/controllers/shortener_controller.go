package controllers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tinyurl-be/internal/middleware"
	"tinyurl-be/internal/models"
	"tinyurl-be/internal/service"
)

type ShortenerController struct {
	urlService service.URLService
	logger     *slog.Logger
}

func NewShortenerController(urlService service.URLService, logger *slog.Logger) *ShortenerController {
	return &ShortenerController{
		urlService: urlService,
		logger:     logger,
	}
}

// ListURLs handles GET /url
func (sc *ShortenerController) ListURLs(c *gin.Context) {
	links, err := sc.urlService.ListLinks(c.Request.Context())
	if err != nil {
		respondError(c, sc.logger, err)
		return
	}

	c.JSON(http.StatusOK, links)
}

// CreateShortURL handles POST /url (protected)
func (sc *ShortenerController) CreateShortURL(c *gin.Context) {
	var req models.CreateURLRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, sc.logger, err)
		return
	}

	var owner *string
	if userID, ok := middleware.CurrentUserID(c); ok {
		owner = &userID
	}

	response, err := sc.urlService.CreateLink(c.Request.Context(), req.URL, owner)
	if err != nil {
		respondError(c, sc.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// RedirectToURL handles GET /url/:shortID, recording the visit
func (sc *ShortenerController) RedirectToURL(c *gin.Context) {
	target, err := sc.urlService.ResolveLink(c.Request.Context(), c.Param("shortID"))
	if err != nil {
		respondError(c, sc.logger, err)
		return
	}

	// 302 so browsers do not cache the redirect and every visit is recorded
	c.Redirect(http.StatusFound, target)
}
