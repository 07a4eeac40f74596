package service

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DeriveCompanyName guesses a display name from an email domain:
// "www.acme-labs.com" becomes "Acme Labs".
func DeriveCompanyName(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "www.")

	label := domain
	if dot := strings.LastIndexByte(domain, '.'); dot > 0 {
		label = domain[:dot]
	}

	words := strings.FieldsFunc(label, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})
	if len(words) == 0 {
		return domain
	}

	// Casers hold state and cannot be shared between goroutines.
	return cases.Title(language.English).String(strings.Join(words, " "))
}
