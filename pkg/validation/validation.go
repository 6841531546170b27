package validation

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var phonePattern = regexp.MustCompile(`^[1-9][0-9]{5,15}$`)

// ValidateRecipient accepts an international phone number or a full JID.
func ValidateRecipient(to string) error {
	trimmed := strings.TrimSpace(to)
	if trimmed == "" {
		return errors.New("recipient cannot be empty")
	}
	if strings.Contains(trimmed, "@") || strings.Contains(trimmed, "-") {
		return nil
	}
	return ValidatePhone(trimmed)
}

// ValidatePhone ensures international format (no leading 0, digits only, length 6-16).
func ValidatePhone(phone string) error {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return errors.New("phone number cannot be empty")
	}
	if strings.HasPrefix(trimmed, "+") {
		trimmed = trimmed[1:]
	}
	if strings.HasPrefix(trimmed, "0") {
		return errors.New("phone number must be in international format without leading 0")
	}
	if !phonePattern.MatchString(trimmed) {
		return errors.New("phone number must be digits only and at least 6 characters")
	}
	return nil
}

// ValidateGroupID ensures a group identifier is provided.
func ValidateGroupID(gid string) error {
	if strings.TrimSpace(gid) == "" {
		return errors.New("group_id is required")
	}
	return nil
}

// ValidateURL ensures a non-empty valid URL when provided.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("url cannot be empty")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		return errors.New("url must be valid")
	}
	return nil
}
