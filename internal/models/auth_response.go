package models

import "tinyurl-be/internal/entities"

// TokenPair carries freshly issued credentials. It is never serialized into a
// response body; controllers move both values into cookies.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is what a successful sign-in produces
type AuthResult struct {
	User   *entities.User // Public projection
	Tokens TokenPair
}

// MessageResponse is a plain acknowledgement body
type MessageResponse struct {
	Message string `json:"message"`
}
