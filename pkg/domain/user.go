package domain

import (
	"errors"
	"strings"
)

// User is a backend user record. Password is only populated on writes and is
// always the hashed form.
type User struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

// SessionUser is the cached profile stored alongside the tokens.
type SessionUser struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

// RegisterRequest is the self-service sign-up form.
type RegisterRequest struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	IsAdmin         bool
}

var (
	// ErrRegisterFieldsRequired is returned when any sign-up field is blank.
	ErrRegisterFieldsRequired = errors.New("all fields are required")
	// ErrPasswordMismatch is returned when the two password entries differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Validate runs the checks the sign-up form performs before calling the API.
func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" || r.Password == "" ||
		r.ConfirmPassword == "" || strings.TrimSpace(r.Email) == "" {
		return ErrRegisterFieldsRequired
	}
	if r.Password != r.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

// Greeting returns the time-of-day salutation for the given hour (0-23).
func Greeting(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Good morning"
	case hour >= 12 && hour < 18:
		return "Good afternoon"
	case hour >= 18 && hour < 22:
		return "Good evening"
	default:
		return "Good night"
	}
}
