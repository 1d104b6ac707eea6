package jwt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken is returned when a token does not have exactly three segments.
	ErrMalformedToken = errors.New("token must have three segments")
	// ErrClaimsEncoding is returned when the claims segment is not valid base64url.
	ErrClaimsEncoding = errors.New("claims segment is not base64url")
	// ErrClaimsFormat is returned when the claims segment is not a JSON object.
	ErrClaimsFormat = errors.New("claims segment is not a JSON object")
)

// Claims is the identity carried by a marketplace access token.
//
// Named fields cover everything the client reads. Any claim the client does not
// know about is preserved in Extra so callers never need to re-decode the token.
type Claims struct {
	UserID     int64
	Username   string
	Email      string
	Role       string
	HostelName string
	RoomNumber string

	Subject string
	// Roles is the backend's authority list, usually ROLE_-prefixed.
	Roles []string
	// Type is set to "refresh" on refresh tokens.
	Type string

	ExpiresAt time.Time
	IssuedAt  time.Time

	Extra map[string]any
}

// wireClaims mirrors the JSON payload the backend signs.
type wireClaims struct {
	UserID     int64    `json:"userId,omitempty"`
	Username   string   `json:"username,omitempty"`
	Email      string   `json:"email,omitempty"`
	Role       string   `json:"role,omitempty"`
	HostelName string   `json:"hostelName,omitempty"`
	RoomNumber string   `json:"roomNumber,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	Type       string   `json:"type,omitempty"`
	jwt.RegisteredClaims
}

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// Decode extracts the claims from the middle segment of token.
//
// Decode is pure: it performs no signature check and no I/O. Any malformed
// segment count, bad base64, or non-object JSON yields an error and nil claims.
// A named claim of the wrong type is left at its zero value; userId may also
// arrive as a numeric string.
func Decode(token string) (*Claims, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return nil, ErrMalformedToken
	}

	raw, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClaimsEncoding, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, ErrClaimsFormat
	}

	claims := &Claims{}
	for name, value := range fields {
		switch name {
		case "userId":
			claims.UserID = decodeID(value)
		case "username":
			claims.Username = decodeString(value)
		case "email":
			claims.Email = decodeString(value)
		case "role":
			claims.Role = decodeString(value)
		case "hostelName":
			claims.HostelName = decodeString(value)
		case "roomNumber":
			claims.RoomNumber = decodeString(value)
		case "sub":
			claims.Subject = decodeString(value)
		case "type":
			claims.Type = decodeString(value)
		case "roles":
			if err := json.Unmarshal(value, &claims.Roles); err != nil {
				claims.Roles = nil
			}
		case "exp":
			claims.ExpiresAt = decodeDate(value)
		case "iat":
			claims.IssuedAt = decodeDate(value)
		case "iss", "aud", "nbf", "jti":
		default:
			var v any
			if err := json.Unmarshal(value, &v); err != nil {
				continue
			}
			if claims.Extra == nil {
				claims.Extra = make(map[string]any)
			}
			claims.Extra[name] = v
		}
	}
	if claims.Email == "" {
		// the backend uses the email as subject on older tokens
		claims.Email = claims.Subject
	}

	return claims, nil
}

func decodeString(raw json.RawMessage) string {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

// decodeID accepts 42 and "42".
func decodeID(raw json.RawMessage) int64 {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	id, err := n.Int64()
	if err != nil {
		return 0
	}
	return id
}

func decodeDate(raw json.RawMessage) time.Time {
	var d *jwt.NumericDate
	if err := json.Unmarshal(raw, &d); err != nil || d == nil {
		return time.Time{}
	}
	return d.Time
}

// Parse is Decode for callers that only care whether claims exist.
func Parse(token string) (*Claims, bool) {
	claims, err := Decode(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// Expired reports whether the claims are expired at now. A token without an
// exp claim is treated as expired.
func (c *Claims) Expired(now time.Time) bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return true
	}
	return !now.Before(c.ExpiresAt)
}

// TimeUntilExpiry returns the remaining lifetime, or 0 when expired.
func (c *Claims) TimeUntilExpiry(now time.Time) time.Duration {
	if c.Expired(now) {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

// IsRefresh reports whether the token is a refresh token.
func (c *Claims) IsRefresh() bool {
	return c != nil && c.Type == "refresh"
}

// Complete reports whether the token carries the identity fields the client
// relies on for per-user endpoints.
func (c *Claims) Complete() bool {
	return c != nil && c.UserID != 0 && c.Username != "" && c.Email != "" && c.Role != ""
}

// FormatRemaining renders a remaining lifetime the way the profile view shows it.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "Expired"
	}

	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	seconds := int((d % time.Minute) / time.Second)

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
