package controllers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tinyurl-be/internal/service"
)

type QRCodeController struct {
	urlService service.URLService
	logger     *slog.Logger
}

func NewQRCodeController(urlService service.URLService, logger *slog.Logger) *QRCodeController {
	return &QRCodeController{
		urlService: urlService,
		logger:     logger,
	}
}

// GenerateQRCode handles GET /url/:shortID/qrcode
func (qc *QRCodeController) GenerateQRCode(c *gin.Context) {
	png, err := qc.urlService.LinkQRCode(c.Request.Context(), c.Param("shortID"))
	if err != nil {
		respondError(c, qc.logger, err)
		return
	}

	c.Header("Content-Disposition", "inline; filename=qrcode.png")
	c.Data(http.StatusOK, "image/png", png)
}
