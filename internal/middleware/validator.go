package middleware

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Input validation and sanitization utilities

var (
	tenantIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	auditIDRe  = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}-audit$`)
	htmlTagRe  = regexp.MustCompile(`<[^>]*>`)
)

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}

	// Allow alphanumeric, dash, underscore (max 64 chars)
	if !tenantIDRe.MatchString(tenant) {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}

	return nil
}

// ValidateAuditID validates audit ID format (uuid with -audit suffix)
func ValidateAuditID(id string) error {
	if id == "" {
		return fmt.Errorf("audit ID cannot be empty")
	}

	if !auditIDRe.MatchString(id) {
		return fmt.Errorf("invalid audit ID format")
	}

	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// SanitizeErrorMessage strips markup and caps the length of error text that
// goes back to API clients. Provider errors can echo request fragments.
func SanitizeErrorMessage(msg string) string {
	msg = SanitizeString(msg)
	msg = htmlTagRe.ReplaceAllString(msg, "")
	msg = strings.ReplaceAll(msg, "\n", " ")
	if len(msg) > 200 {
		cut := 200
		// never cut in the middle of a multibyte rune
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	return msg
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
