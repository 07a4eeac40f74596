package model

import (
	"net/mail"
	"strings"
)

// NormalizeEmail validates a bare address and lower-cases it.
func NormalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", NewValidationError("email", "must not be empty")
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw || addr.Name != "" {
		return "", NewValidationError("email", "malformed address")
	}
	email := strings.ToLower(addr.Address)
	if EmailDomain(email) == "" {
		return "", NewValidationError("email", "missing domain")
	}
	return email, nil
}

// EmailDomain returns the lower-cased part after the last @.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
