package web

import (
	"errors"
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?\d{10,15}$`)
)

// validEmail reports whether email looks like an address we can store.
func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// normalizePhone strips formatting characters (spaces, dashes, parentheses)
// and validates the result: 10-15 digits with an optional leading +.
// An empty phone is allowed — the field is optional — and normalizes to "".
func normalizePhone(phone string) (string, error) {
	if phone == "" {
		return "", nil
	}
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, phone)
	if !phonePattern.MatchString(cleaned) {
		return "", errors.New("invalid phone number format")
	}
	return cleaned, nil
}

// checkPassword enforces the signup password policy.
func checkPassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	return nil
}
