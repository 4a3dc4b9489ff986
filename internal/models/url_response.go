package models

// CreateURLResponse represents the response after creating a short link
type CreateURLResponse struct {
	ID     string `json:"id"`     // Short ID
	QRCode string `json:"qrcode"` // data:image/png;base64,...
}
