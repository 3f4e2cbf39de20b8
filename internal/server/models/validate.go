package models

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophbook/internal/common"
)

const (
	MaxNameLength  = 60
	MaxEmailLength = 120
)

// CanonicalEmail is the form emails are stored and compared in.
func CanonicalEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidateEmail checks a canonical email: non-empty, bounded, and a bare
// addr-spec (no display name, no angle brackets).
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", common.ErrorValidation)
	}
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return fmt.Errorf("%w: email is longer than %d characters", common.ErrorValidation, MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return fmt.Errorf("%w: email is not valid", common.ErrorValidation)
	}
	return nil
}

// ValidateName checks a trimmed display or record name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", common.ErrorValidation)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: name is longer than %d characters", common.ErrorValidation, MaxNameLength)
	}
	return nil
}
