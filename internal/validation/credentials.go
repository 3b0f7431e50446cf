package validation

import (
	"fmt"
	"regexp"
)

// EmailPattern is a pragmatic email shape check, not a full RFC 5322 parser.
// Local part, @, domain with at least one dot.
var EmailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const (
	// MaxEmailLen caps stored email length
	MaxEmailLen = 255
	// MinPasswordLen is the weak-password threshold
	MinPasswordLen = 8
	// MaxPasswordLen guards against bcrypt's 72-byte input limit
	MaxPasswordLen = 72
)

// ValidateEmail checks that email looks like an address and fits storage.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	if len(email) > MaxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", MaxEmailLen)
	}

	if !EmailPattern.MatchString(email) {
		return fmt.Errorf("email is not a valid address")
	}

	return nil
}

// ValidatePassword enforces the minimum password strength for registration.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}

	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must not exceed %d characters", MaxPasswordLen)
	}

	return nil
}
