// Package policy decides which email domains may start onboarding.
package policy

import (
	"bufio"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dtroode/onboarding-server/internal/model"
)

//go:embed freemail.txt
var freemail string

// File is the YAML layout of a domain policy file.
type File struct {
	// Allowed restricts onboarding to these domains and their subdomains.
	// Empty means every domain that is not blocked.
	Allowed []string `yaml:"allowed"`
	Blocked []string `yaml:"blocked"`
	// AllowFreeMail disables the built-in consumer mailbox block list.
	AllowFreeMail bool `yaml:"allow_free_mail"`
}

// Domain is the pre-flight check run before any identity provider call.
type Domain struct {
	allowed map[string]struct{}
	blocked map[string]struct{}
}

// New builds a policy from its file form.
func New(f File) *Domain {
	d := &Domain{
		allowed: toSet(f.Allowed),
		blocked: toSet(f.Blocked),
	}
	if !f.AllowFreeMail {
		for domain := range FreeMailDomains() {
			d.blocked[domain] = struct{}{}
		}
	}
	return d
}

// Load reads a YAML policy file. An empty path yields the default policy.
func Load(path string) (*Domain, error) {
	if path == "" {
		return New(File{}), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read domain policy: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse domain policy: %w", err)
	}

	return New(f), nil
}

// Check validates email and reports whether its domain may onboard.
// It returns the normalized address.
func (d *Domain) Check(email string) (string, error) {
	normalized, err := model.NormalizeEmail(email)
	if err != nil {
		return "", err
	}

	domain := model.EmailDomain(normalized)
	if matches(d.blocked, domain) {
		return "", fmt.Errorf("%w: %s", model.ErrDomainNotAllowed, domain)
	}
	if len(d.allowed) > 0 && !matches(d.allowed, domain) {
		return "", fmt.Errorf("%w: %s", model.ErrDomainNotAllowed, domain)
	}

	return normalized, nil
}

// FreeMailDomains returns the built-in consumer mailbox domains.
func FreeMailDomains() map[string]struct{} {
	out := make(map[string]struct{})
	sc := bufio.NewScanner(strings.NewReader(freemail))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out[strings.ToLower(line)] = struct{}{}
	}
	return out
}

// matches reports whether domain or one of its parents is in set.
func matches(set map[string]struct{}, domain string) bool {
	for {
		if _, ok := set[domain]; ok {
			return true
		}
		dot := strings.IndexByte(domain, '.')
		if dot < 0 {
			return false
		}
		domain = domain[dot+1:]
	}
}

func toSet(domains []string) map[string]struct{} {
	out := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			out[d] = struct{}{}
		}
	}
	return out
}
