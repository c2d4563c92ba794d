package service

import (
	"regexp"
	"unicode/utf16"

	"github.com/sakif/auth-backend/internal/apperror"
)

const (
	MinFullnameLength = 3
	MinPasswordLength = 6
	MaxPasswordLength = 20
)

// emailPattern accepts local@domain.tld: word runs joined by single dots or
// hyphens on both sides, then one or more 2–3 character TLD segments.
var emailPattern = regexp.MustCompile(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`)

// Signup validation failures. Each is a distinct *apperror.AppError, so
// callers can match the exact rule with errors.Is as well as the general
// apperror.ErrValidation.
var (
	ErrNameTooShort = apperror.ValidationFailed("fullname", "Fullname must be at least 3 letters long")
	ErrEmailMissing = apperror.ValidationFailed("email", "Enter the email")
	ErrEmailInvalid = apperror.ValidationFailed("email", "Invalid email")
	ErrPasswordWeak = apperror.ValidationFailed("password",
		"Password should be 6 to 20 characters long with a numeric, 1 lowercase, and 1 uppercase")
)

// ValidateSignup checks signup input and returns the first rule broken, in
// the order fullname, email presence, email format, password strength.
func ValidateSignup(fullname, email, password string) error {
	if codeUnits(fullname) < MinFullnameLength {
		return ErrNameTooShort
	}
	if email == "" {
		return ErrEmailMissing
	}
	if !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}
	if !strongPassword(password) {
		return ErrPasswordWeak
	}
	return nil
}

// strongPassword: 6–20 code units on one line, with at least one ASCII digit,
// one lowercase and one uppercase ASCII letter.
func strongPassword(password string) bool {
	n := codeUnits(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return false
	}

	var digit, lower, upper bool
	for _, r := range password {
		switch {
		case r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029':
			return false
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		}
	}
	return digit && lower && upper
}

// codeUnits returns the UTF-16 length of s. Clients measure names and
// passwords this way, so a character outside the BMP counts twice.
func codeUnits(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
