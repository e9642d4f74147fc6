package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the bearer token payload used to identify the acting organiser.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}
