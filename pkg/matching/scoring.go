package matching

import (
	"strings"

	"github.com/Ramsey-B/bramble/pkg/normalizers"
)

// ScoringConfig holds the tunable constants of the similarity primitives.
// The partial-score curve is a product decision, not a formula the backend
// mandates, so every number here is overridable.
type ScoringConfig struct {
	PhonePrefixMinDigits int     // Minimum shared significant digits for a partial phone match (default: 9)
	PhonePartialCap      float64 // Upper bound for partial phone scores (default: 0.8)
	EmailDomainScore     float64 // Score for same-domain, different local part (default: 0.4)
	NameSubstringScore   float64 // Score for full substring containment (default: 0.7)
	NameTokenScore       float64 // Scale for fractional token containment (default: 0.5)
}

// DefaultScoringConfig returns the default scoring constants
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		PhonePrefixMinDigits: 9,
		PhonePartialCap:      0.8,
		EmailDomainScore:     0.4,
		NameSubstringScore:   0.7,
		NameTokenScore:       0.5,
	}
}

// Scorer computes normalized confidence scores for signal pairs. All methods
// are pure and return values in [0, 1]; blank inputs score 0.
type Scorer struct {
	cfg ScoringConfig
}

// NewScorer creates a new Scorer
func NewScorer(cfg ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Phone scores two phone numbers. Equal normalized forms score 1.0, a shared
// prefix of at least PhonePrefixMinDigits significant digits scores
// proportionally to the shared length, anything else scores 0.
func (s *Scorer) Phone(a, b string) float64 {
	da := strings.TrimLeft(normalizers.NormalizePhone(a), "0")
	db := strings.TrimLeft(normalizers.NormalizePhone(b), "0")
	if da == "" || db == "" {
		return 0
	}
	if da == db {
		return 1.0
	}

	// Same subscriber number written with different country/trunk prefixes
	keep := s.cfg.PhonePrefixMinDigits
	if normalizers.SignificantPhoneDigits(a, keep) == normalizers.SignificantPhoneDigits(b, keep) {
		return 1.0
	}

	shared := 0
	for shared < len(da) && shared < len(db) && da[shared] == db[shared] {
		shared++
	}
	if shared < keep {
		return 0
	}

	maxLen := len(da)
	if len(db) > maxLen {
		maxLen = len(db)
	}
	// shared < maxLen whenever the numbers differ, so this stays below the cap
	return s.cfg.PhonePartialCap * float64(shared) / float64(maxLen)
}

// Email scores two email addresses. Case-insensitive equality scores 1.0, a
// shared domain with different local parts scores EmailDomainScore.
func (s *Scorer) Email(a, b string) float64 {
	ea := normalizers.NormalizeEmail(a)
	eb := normalizers.NormalizeEmail(b)
	if ea == "" || eb == "" {
		return 0
	}
	if ea == eb {
		return 1.0
	}

	da := normalizers.EmailDomain(ea)
	db := normalizers.EmailDomain(eb)
	if da != "" && da == db {
		return s.cfg.EmailDomainScore
	}
	return 0
}

// Name scores two display names. Equality after normalization scores 1.0,
// substring containment scores NameSubstringScore, and partial token overlap
// scores the contained fraction scaled by NameTokenScore.
func (s *Scorer) Name(a, b string) float64 {
	na := normalizers.NormalizeName(a)
	nb := normalizers.NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return s.cfg.NameSubstringScore
	}

	query := strings.Fields(na)
	candidate := strings.Fields(nb)
	if len(query) > len(candidate) {
		query, candidate = candidate, query
	}

	contained := 0
	for _, tok := range query {
		for _, other := range candidate {
			if tok == other {
				contained++
				break
			}
		}
	}
	if contained == 0 {
		return 0
	}

	return s.cfg.NameTokenScore * float64(contained) / float64(len(query))
}
