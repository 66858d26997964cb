// Package session persists the authenticated session between runs.
//
// A session is stored as three string-keyed values: the access token, the
// refresh token and the JSON-serialised user. Every Store writes all three
// together; a record missing any of them reads as no session.
package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/naveenspark/carpolicy/pkg/domain"
)

// Keys of the persisted record.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// ErrCorrupt is returned when a stored record exists but cannot be read.
var ErrCorrupt = errors.New("session record unreadable")

// Store holds at most one session.
type Store interface {
	// Get returns the current session, or nil when none is stored.
	Get() (*domain.Session, error)
	// Set replaces the stored session as a whole.
	Set(s *domain.Session) error
	// Clear removes every key of the stored session.
	Clear() error
}

func toRecord(s *domain.Session) (map[string]string, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	user, err := json.Marshal(s.User)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	return map[string]string{
		KeyAccessToken:  s.AccessToken,
		KeyRefreshToken: s.RefreshToken,
		KeyUser:         string(user),
	}, nil
}

func fromRecord(rec map[string]string) (*domain.Session, error) {
	access, okA := rec[KeyAccessToken]
	refresh, okR := rec[KeyRefreshToken]
	rawUser, okU := rec[KeyUser]
	if !okA || !okR || !okU || access == "" || refresh == "" || rawUser == "" {
		return nil, nil
	}
	var user domain.SessionUser
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return nil, fmt.Errorf("%w: user: %v", ErrCorrupt, err)
	}
	return &domain.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	}, nil
}
