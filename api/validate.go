package api

import (
	"regexp"
	"sort"
	"strings"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// MinPasswordLength is the shortest password the forms accept.
const MinPasswordLength = 8

// FieldErrors maps a form field to its validation message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+fe[f])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

func (fe FieldErrors) orNil() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func validateEmail(fe FieldErrors, email string) {
	switch {
	case strings.TrimSpace(email) == "":
		fe["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		fe["email"] = "Email is invalid"
	}
}

func validatePassword(fe FieldErrors, password string) {
	switch {
	case password == "":
		fe["password"] = "Password is required"
	case len(password) < MinPasswordLength:
		fe["password"] = "Password must be at least 8 characters"
	}
}

// ValidateLogin returns FieldErrors, or nil when c may be submitted.
func ValidateLogin(c Credentials) error {
	fe := FieldErrors{}
	validateEmail(fe, c.Email)
	validatePassword(fe, c.Password)
	return fe.orNil()
}

// ValidateRegistration returns FieldErrors, or nil when r may be submitted.
func ValidateRegistration(r Registration) error {
	fe := FieldErrors{}
	required := []struct {
		field, value, label string
	}{
		{"username", r.Username, "Username"},
		{"phoneNo", r.PhoneNo, "Phone number"},
		{"location", r.Location, "Location"},
		{"roomNo", r.RoomNo, "Room number"},
		{"hostelName", r.HostelName, "Hostel name"},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			fe[f.field] = f.label + " is required"
		}
	}
	validateEmail(fe, r.Email)
	validatePassword(fe, r.Password)

	switch strings.ToUpper(strings.TrimSpace(r.Role)) {
	case "USER", "SELLER":
	case "":
		fe["role"] = "Role is required"
	default:
		fe["role"] = "Role must be USER or SELLER"
	}
	return fe.orNil()
}
