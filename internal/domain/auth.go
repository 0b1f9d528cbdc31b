package domain

import "time"

// TokenTypeBearer is the token type label returned alongside access tokens.
const TokenTypeBearer = "Bearer"

// Token is an issued access token. The value is opaque to callers.
type Token struct {
	Value     string
	Type      string
	ExpiresAt time.Time
}
