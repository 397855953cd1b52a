package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"valid", "ValidP@ss1", ""},
		{"all special chars", `Val!@#$%^&*()_+-=[]{};':"\|,.<>/?1dP@ss`, ""},
		{"too short", "V@lid1", "Password must be at least 8 characters long."},
		{"missing number", "ValidP@ssword", "Password must contain at least one number."},
		{"missing lowercase", "VALIDP@SS1", "Password must contain at least one lowercase letter."},
		{"missing uppercase", "validp@ss1", "Password must contain at least one uppercase letter."},
		{"missing special", "ValidPass1", "Password must contain at least one special character."},
		{"space", "ValidP@ss 1", "Password contains disallowed characters."},
		{"non ascii", "ValidP@ss1é", "Password contains disallowed characters."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePassword(tt.password)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}
