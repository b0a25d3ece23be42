package util

import (
	"errors"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nyaruka/phonenumbers"
)

var strictPolicy = bluemonday.StrictPolicy()

// ErrInvalidPhone is returned for numbers that parse but are not dialable.
var ErrInvalidPhone = errors.New("invalid phone number")

// SanitizeText strips every HTML element from user supplied text and trims it.
func SanitizeText(raw string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(raw))
}

// SanitizeOptional applies SanitizeText to an optional value. Blank results become nil.
func SanitizeOptional(raw *string) *string {
	if raw == nil {
		return nil
	}
	cleaned := SanitizeText(*raw)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// NormalizePhone parses a phone number in the given default region and formats it as E.164.
func NormalizePhone(raw, region string) (string, error) {
	number, err := phonenumbers.Parse(strings.TrimSpace(raw), region)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(number) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(number, phonenumbers.E164), nil
}
