package session

import (
	"maps"
	"slices"
	"time"

	"github.com/MrEthical07/hostelbites/jwt"
)

// Session is the current authentication state. Claims is nil exactly when
// Token is empty.
type Session struct {
	Token  string
	Claims *jwt.Claims
}

// Present reports whether a token is held, expired or not.
func (s Session) Present() bool {
	return s.Token != "" && s.Claims != nil
}

// Valid reports whether the session is present and unexpired at now.
func (s Session) Valid(now time.Time) bool {
	return s.Present() && !s.Claims.Expired(now)
}

// Role returns the parsed role claim, falling back to the ROLE_ authority list.
func (s Session) Role() Role {
	if s.Claims == nil {
		return ""
	}
	if r := ParseRole(s.Claims.Role); r != "" {
		return r
	}
	for _, authority := range s.Claims.Roles {
		if r := ParseRole(authority); r != "" {
			return r
		}
	}
	return ""
}

// UserID returns the userId claim.
func (s Session) UserID() (int64, bool) {
	if s.Claims == nil || s.Claims.UserID == 0 {
		return 0, false
	}
	return s.Claims.UserID, true
}

func (s Session) clone() Session {
	if s.Claims == nil {
		return s
	}
	c := *s.Claims
	c.Roles = slices.Clone(s.Claims.Roles)
	c.Extra = maps.Clone(s.Claims.Extra)
	return Session{Token: s.Token, Claims: &c}
}

// Change identifies a session state transition reported to an Observer.
type Change int

const (
	// ChangeRestored fires when Restore populated the session from storage.
	ChangeRestored Change = iota + 1
	// ChangeExpired fires when a held token is found expired and cleared.
	ChangeExpired
	// ChangeLogin fires after a successful Login.
	ChangeLogin
	// ChangeLogout fires after Logout cleared a session.
	ChangeLogout
	// ChangeInvalidated fires when the backend rejected the token.
	ChangeInvalidated
)

func (c Change) String() string {
	switch c {
	case ChangeRestored:
		return "restored"
	case ChangeExpired:
		return "expired"
	case ChangeLogin:
		return "login"
	case ChangeLogout:
		return "logout"
	case ChangeInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Observer receives session transitions. It is called without the store lock
// held and must not block.
type Observer func(change Change, current Session)
