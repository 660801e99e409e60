// Package security implements the pre-execution policy layer: automation and
// step screening, confirmation-required operations and the input sanitizers
// every external-facing executor must route through.
package security

import (
	"fmt"
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxTextLength bounds sanitized free-text inputs when the caller does
// not pass an explicit limit.
const DefaultMaxTextLength = 1000

// SanitizeResult is the outcome of one sanitizer call. Sanitized holds the
// cleaned value and is only meaningful when IsValid is true.
type SanitizeResult struct {
	IsValid   bool     `json:"is_valid"`
	Sanitized string   `json:"sanitized"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{3,15}$`)

// SanitizeTextInput strips control characters, trims surrounding whitespace
// and truncates to maxLength. Truncation is a warning, not an error.
func SanitizeTextInput(text string, maxLength int) SanitizeResult {
	if maxLength <= 0 {
		maxLength = DefaultMaxTextLength
	}

	var builder strings.Builder

	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}

		builder.WriteRune(r)
	}

	sanitized := strings.TrimSpace(builder.String())
	result := SanitizeResult{IsValid: true}

	if len(sanitized) > maxLength {
		// Never cut through a multi-byte rune; back up to its start.
		cut := maxLength
		for cut > 0 && !utf8.RuneStart(sanitized[cut]) {
			cut--
		}

		sanitized = sanitized[:cut]
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("text truncated to %d bytes", cut))
	}

	result.Sanitized = sanitized

	return result
}

// ValidateEmailAddress accepts RFC 5322 addresses without display names.
func ValidateEmailAddress(email string) SanitizeResult {
	trimmed := strings.TrimSpace(email)

	address, err := mail.ParseAddress(trimmed)
	if err != nil || address.Name != "" {
		return SanitizeResult{
			IsValid: false,
			Errors:  []string{fmt.Sprintf("invalid email address %q", email)},
		}
	}

	return SanitizeResult{IsValid: true, Sanitized: address.Address}
}

// ValidatePhoneNumber normalizes separators and accepts E.164-ish numbers.
func ValidatePhoneNumber(phone string) SanitizeResult {
	normalized := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(phone))

	if !phonePattern.MatchString(normalized) {
		return SanitizeResult{
			IsValid: false,
			Errors:  []string{fmt.Sprintf("invalid phone number %q", phone)},
		}
	}

	return SanitizeResult{IsValid: true, Sanitized: normalized}
}

// ValidateURL accepts absolute http(s) URLs and rejects anything that could
// reach a private network (SSRF guard) or smuggle credentials. Every executor
// that constructs a request from user input must pass its URL through here.
func ValidateURL(raw string) SanitizeResult {
	trimmed := strings.TrimSpace(raw)

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return SanitizeResult{
			IsValid: false,
			Errors:  []string{fmt.Sprintf("invalid url %q", raw)},
		}
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return SanitizeResult{
			IsValid: false,
			Errors:  []string{fmt.Sprintf("unsupported url scheme %q", parsed.Scheme)},
		}
	}

	if parsed.User != nil {
		return SanitizeResult{
			IsValid: false,
			Errors:  []string{"url must not embed credentials"},
		}
	}

	host := parsed.Hostname()
	if host == "" {
		return SanitizeResult{
			IsValid: false,
			Errors:  []string{"url is missing a host"},
		}
	}

	if isPrivateHost(host) {
		return SanitizeResult{
			IsValid: false,
			Errors:  []string{fmt.Sprintf("host %q resolves to a private or local network", host)},
		}
	}

	result := SanitizeResult{IsValid: true, Sanitized: parsed.String()}

	if parsed.Scheme == "http" {
		result.Warnings = append(result.Warnings, "url uses plain http")
	}

	return result
}

// isPrivateHost blocks loopback, RFC 1918, link-local, unspecified addresses
// and well-known local hostnames.
func isPrivateHost(host string) bool {
	lowered := strings.ToLower(host)
	if lowered == "localhost" || strings.HasSuffix(lowered, ".localhost") ||
		strings.HasSuffix(lowered, ".local") || strings.HasSuffix(lowered, ".internal") {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}
