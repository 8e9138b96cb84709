package auth

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const maxPasswordLength = 72 // bcrypt ignores anything longer

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PasswordPolicy is the configurable strength rule for new passwords.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumbers   bool
	RequireSymbols   bool
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8}
}

// Check returns an empty string when password satisfies the policy, or a
// message naming the first rule it breaks.
func (p PasswordPolicy) Check(password string) string {
	minLen := p.MinLength
	if minLen <= 0 {
		minLen = 8
	}
	if len(password) < minLen {
		return fmt.Sprintf("Password must be at least %d characters", minLen)
	}
	if len(password) > maxPasswordLength {
		return fmt.Sprintf("Password must be at most %d characters", maxPasswordLength)
	}

	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsNumber(r):
			hasNumber = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}

	switch {
	case p.RequireUppercase && !hasUpper:
		return "Password must contain at least one uppercase letter"
	case p.RequireLowercase && !hasLower:
		return "Password must contain at least one lowercase letter"
	case p.RequireNumbers && !hasNumber:
		return "Password must contain at least one number"
	case p.RequireSymbols && !hasSymbol:
		return "Password must contain at least one special character"
	}
	return ""
}
