package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// The client never holds the signing key; this is for display only.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("client.TokenExpiry: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("client.TokenExpiry: %w", err)
	}
	if exp == nil {
		return time.Time{}, errors.New("client.TokenExpiry: token has no exp claim")
	}
	return exp.Time, nil
}
