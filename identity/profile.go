package identity

import (
	"fmt"
	"unicode"

	"github.com/jrsteele09/bizadmin/internal/errors"
	"github.com/jrsteele09/bizadmin/internal/validation"
)

// Profile is the data collected by the registration form.
type Profile struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name,omitempty" validate:"omitempty,max=120"`
}

// Validate checks the profile shape and the password rules.
func (p Profile) Validate() error {
	if err := validation.Struct(p); err != nil {
		return err
	}
	if err := ValidatePasswordStrength(p.Password); err != nil {
		return errors.Wrapf(errors.ErrWeakPassword, "%s", err.Error())
	}
	return nil
}

// Validate checks that both fields are present and the email is well formed.
func (c Credentials) Validate() error {
	return validation.Struct(c)
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}
