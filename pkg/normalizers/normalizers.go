// Package normalizers provides identifier normalization for matching
package normalizers

import (
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

var registry = make(map[string]Normalizer)

func init() {
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("nphone", NormalizePhone)
	Register("nemail", NormalizeEmail)
	Register("nname", NormalizeName)
	Register("digits_only", DigitsOnly)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Apply applies a named normalizer to a value. Unknown names return the
// value unchanged.
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// NormalizePhone keeps only digits. "+61 400 123 456" and "0061400123456"
// both reduce to digit strings; prefix comparison handles country noise.
func NormalizePhone(s string) string {
	return DigitsOnly(s)
}

// SignificantPhoneDigits returns the trailing digits of a phone number with
// leading trunk noise removed: leading zeros stripped and, for numbers longer
// than keep digits, everything before the last keep digits dropped.
func SignificantPhoneDigits(s string, keep int) string {
	digits := strings.TrimLeft(DigitsOnly(s), "0")
	if keep > 0 && len(digits) > keep {
		digits = digits[len(digits)-keep:]
	}
	return digits
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EmailDomain returns the domain part of a normalized email, or "" if the
// value does not look like an email address.
func EmailDomain(s string) string {
	s = NormalizeEmail(s)
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return ""
	}
	return s[at+1:]
}

// NormalizeName normalizes a display name for matching: lowercase, strip
// punctuation, collapse runs of whitespace.
func NormalizeName(s string) string {
	s = strings.ToLower(s)

	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			prevSpace = false
		} else if unicode.IsSpace(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
