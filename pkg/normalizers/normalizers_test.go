package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigitsOnly(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "formatted international number", input: "+61 400 123 456", expected: "61400123456"},
		{name: "dashes and parens", input: "(555) 123-4567", expected: "5551234567"},
		{name: "no digits", input: "abc", expected: ""},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DigitsOnly(tt.input))
		})
	}
}

func TestSignificantPhoneDigits(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		keep     int
		expected string
	}{
		{name: "strips country code", input: "+61400123456", keep: 9, expected: "400123456"},
		{name: "strips trunk zero", input: "0400123456", keep: 9, expected: "400123456"},
		{name: "double zero international prefix", input: "0061400123456", keep: 9, expected: "400123456"},
		{name: "short number kept whole", input: "12345", keep: 9, expected: "12345"},
		{name: "zero keep returns all significant digits", input: "0061400123456", keep: 0, expected: "61400123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SignificantPhoneDigits(tt.input, tt.keep))
		})
	}
}

func TestEmailDomain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain address", input: "alice@acme.io", expected: "acme.io"},
		{name: "mixed case", input: "Alice@Acme.IO", expected: "acme.io"},
		{name: "no at sign", input: "not-an-email", expected: ""},
		{name: "trailing at sign", input: "alice@", expected: ""},
		{name: "leading at sign", input: "@acme.io", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EmailDomain(tt.input))
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercases", input: "Alice Nguyen", expected: "alice nguyen"},
		{name: "strips punctuation", input: "O'Brien, Patrick", expected: "obrien patrick"},
		{name: "collapses whitespace", input: "  alice   nguyen  ", expected: "alice nguyen"},
		{name: "keeps digits", input: "Crew 42", expected: "crew 42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestApply(t *testing.T) {
	assert.Equal(t, "5551234567", Apply("(555) 123-4567", "nphone"))
	assert.Equal(t, "alice@acme.io", Apply(" Alice@Acme.IO ", "nemail"))

	// unknown normalizer names pass the value through
	assert.Equal(t, "UNCHANGED", Apply("UNCHANGED", "does-not-exist"))
}
