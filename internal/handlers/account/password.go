package account

import (
	"errors"
	"strings"
)

const (
	minPasswordLength   = 8
	allowedSpecialChars = `!@#$%^&*()_+\-=[]{};':"\|,.<>/?`
)

// validatePassword requires a digit, a lower and an upper case letter and a
// special character, and rejects anything else.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return errors.New("Password must be at least 8 characters long.")
	}

	var hasNumber, hasLower, hasUpper, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasNumber = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case strings.ContainsRune(allowedSpecialChars, r):
			hasSpecial = true
		default:
			return errors.New("Password contains disallowed characters.")
		}
	}

	switch {
	case !hasNumber:
		return errors.New("Password must contain at least one number.")
	case !hasLower:
		return errors.New("Password must contain at least one lowercase letter.")
	case !hasUpper:
		return errors.New("Password must contain at least one uppercase letter.")
	case !hasSpecial:
		return errors.New("Password must contain at least one special character.")
	}
	return nil
}
