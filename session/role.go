package session

import "strings"

// Role is a marketplace role. The zero value is not a valid role.
type Role string

const (
	// RoleUser is a buyer.
	RoleUser Role = "USER"
	// RoleSeller lists products and fulfils orders.
	RoleSeller Role = "SELLER"
	// RoleAdmin can enter every protected area.
	RoleAdmin Role = "ADMIN"
)

// ParseRole normalizes s into a Role. It accepts the backend's ROLE_ prefix and
// any letter case. Unknown values return the zero Role.
func ParseRole(s string) Role {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "ROLE_")
	switch Role(s) {
	case RoleUser, RoleSeller, RoleAdmin:
		return Role(s)
	default:
		return ""
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSeller, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	if r == "" {
		return "UNKNOWN"
	}
	return string(r)
}

// LandingRoute is where a freshly logged-in user is sent.
func (r Role) LandingRoute() string {
	switch r {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleUser:
		return "/user/home"
	case RoleSeller:
		return "/seller/home"
	default:
		return "/"
	}
}

// Decision is the outcome of a role check.
type Decision int

const (
	// Unauthenticated means there is no valid, unexpired session.
	Unauthenticated Decision = iota
	// Forbidden means the session's role is not in the required set.
	Forbidden
	// Allowed means the session may proceed.
	Allowed
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Forbidden:
		return "forbidden"
	default:
		return "unauthenticated"
	}
}
