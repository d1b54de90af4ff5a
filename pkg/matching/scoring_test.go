package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorerPhone(t *testing.T) {
	scorer := NewScorer(DefaultScoringConfig())

	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{name: "identical formatted differently", a: "+61 400 123 456", b: "61400123456", expected: 1.0},
		{name: "country code vs trunk zero", a: "+61400123456", b: "0400123456", expected: 1.0},
		{name: "double zero international prefix", a: "0061400123456", b: "+61400123456", expected: 1.0},
		{name: "shared nine digit prefix", a: "+61400123456", b: "+61400123499", expected: 0.8 * 9.0 / 11.0},
		{name: "unrelated numbers", a: "+61400123456", b: "+15551234567", expected: 0},
		{name: "short shared prefix scores zero", a: "5551234", b: "5551299", expected: 0},
		{name: "blank side", a: "", b: "0400123456", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scorer.Phone(tt.a, tt.b), 1e-9)
			// phone scoring is symmetric
			assert.InDelta(t, tt.expected, scorer.Phone(tt.b, tt.a), 1e-9)
		})
	}
}

func TestScorerPhonePartialStaysBelowStrongTier(t *testing.T) {
	scorer := NewScorer(DefaultScoringConfig())

	score := scorer.Phone("+61400123456", "+61400123499")
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 0.9)
}

func TestScorerEmail(t *testing.T) {
	scorer := NewScorer(DefaultScoringConfig())

	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{name: "exact", a: "alice@acme.io", b: "alice@acme.io", expected: 1.0},
		{name: "case insensitive exact", a: "Alice@Acme.IO", b: "alice@acme.io", expected: 1.0},
		{name: "same domain different local part", a: "alice@acme.io", b: "bob@acme.io", expected: 0.4},
		{name: "different domain", a: "alice@acme.io", b: "alice@other.io", expected: 0},
		{name: "malformed side", a: "not-an-email", b: "alice@acme.io", expected: 0},
		{name: "blank side", a: "", b: "alice@acme.io", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scorer.Email(tt.a, tt.b), 1e-9)
		})
	}
}

func TestScorerName(t *testing.T) {
	scorer := NewScorer(DefaultScoringConfig())

	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{name: "equal after normalization", a: "Alice Nguyen", b: "alice nguyen", expected: 1.0},
		{name: "punctuation ignored", a: "O'Brien, Patrick", b: "obrien patrick", expected: 1.0},
		{name: "substring containment", a: "Alice", b: "Alice Nguyen", expected: 0.7},
		{name: "half the tokens contained", a: "Alice Smith", b: "Alice Nguyen", expected: 0.5 * 0.5},
		{name: "no overlap", a: "Alice Nguyen", b: "Bob Carter", expected: 0},
		{name: "blank side", a: "", b: "Alice", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scorer.Name(tt.a, tt.b), 1e-9)
		})
	}
}

func TestScorerConfigOverrides(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.EmailDomainScore = 0.25
	cfg.NameSubstringScore = 0.6
	scorer := NewScorer(cfg)

	assert.InDelta(t, 0.25, scorer.Email("alice@acme.io", "bob@acme.io"), 1e-9)
	assert.InDelta(t, 0.6, scorer.Name("Alice", "Alice Nguyen"), 1e-9)
}
