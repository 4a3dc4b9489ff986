package models

// CreateURLRequest represents the request body for creating a short link
type CreateURLRequest struct {
	URL string `json:"url" binding:"required,url"` // Gin validation: required and must be valid URL
}
