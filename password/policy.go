package password

import (
	"errors"
	"unicode"
	"unicode/utf8"
)

const (
	// PolicyMinLength is the minimum password length in characters.
	PolicyMinLength = 8
	// PolicyMaxLength is the maximum password length in characters.
	PolicyMaxLength = 100
)

// ErrPolicy is returned by [CheckPolicy]. Its text is shown to users as is.
var ErrPolicy = errors.New("Password must be 8-100 characters with uppercase, lowercase, and digits")

// CheckPolicy returns [ErrPolicy] unless pw satisfies the account password rule.
func CheckPolicy(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < PolicyMinLength || n > PolicyMaxLength {
		return ErrPolicy
	}

	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrPolicy
	}
	return nil
}
