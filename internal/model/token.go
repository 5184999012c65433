package model

import "time"

// TokenData identifies the caller behind a validated access token.
type TokenData struct {
	TokenID   string    `json:"token_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssuedToken is handed to a client after register or login.
type IssuedToken struct {
	Token     string      `json:"token"`
	ExpiresIn int         `json:"expires_in"`
	Account   UserAccount `json:"account"`
}
