package model

import "github.com/golang-jwt/jwt/v5"

// SessionClaims scopes a token to a single interview session.
type SessionClaims struct {
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}
