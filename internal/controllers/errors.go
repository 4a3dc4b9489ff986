package controllers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"tinyurl-be/internal/apperrors"
	"tinyurl-be/internal/middleware"
)

// respondError writes {"error": msg} with the status of the error's kind.
// Internal errors are logged and reported, and their details never reach
// the client.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	appErr := apperrors.From(err)
	status := appErr.HTTPStatus()

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		middleware.CaptureError(c, err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(status, gin.H{"error": appErr.Message})
}

// bindJSON decodes the body into dst and runs its binding rules
func bindJSON(c *gin.Context, dst any) *apperrors.Error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperrors.Wrap(apperrors.Validation, validationMessage(verrs[0]), err)
	}
	return apperrors.Wrap(apperrors.BadRequest, "Invalid request body", err)
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch {
	case field == strings.ToUpper(field): // acronyms such as URL
		field = strings.ToLower(field)
	case field != "":
		field = strings.ToLower(field[:1]) + field[1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
