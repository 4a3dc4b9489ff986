package entities

import "time"

// Link represents a short link with its visit history
type Link struct {
	ID           string    `json:"_id"` // UUID
	ShortID      string    `json:"shortID"`
	RedirectURL  string    `json:"redirectURL"`
	QRCode       string    `json:"qrcode"` // data URL of a PNG encoding RedirectURL
	VisitHistory []Visit   `json:"visitHistory"`
	CreatedBy    *string   `json:"createdBy,omitempty"` // User UUID
	CreatedAt    time.Time `json:"created_at"`
}

// Visit is a single resolution of a short link
type Visit struct {
	Timestamp int64 `json:"timestamp"` // Unix milliseconds
}

// VisitAt builds a Visit for t.
func VisitAt(t time.Time) Visit {
	return Visit{Timestamp: t.UnixMilli()}
}
