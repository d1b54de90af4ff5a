// Package matching implements contact resolution: similarity primitives plus
// the aggregator that blends per-signal scores into one ranked candidate list.
package matching

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/normalizers"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// ErrNoSignals is returned when a match query carries no signal at all. It is
// the only error the read API surfaces directly to callers.
var ErrNoSignals = httperror.NewHTTPError(http.StatusBadRequest, "at least one of phone, email or name is required")

// ContactStore is the bounded contact lookup the aggregator queries per
// signal. Implemented by internal/repositories/contact.
type ContactStore interface {
	SearchByPhonePrefix(ctx context.Context, tenantID, digits string, limit int) ([]models.Contact, error)
	SearchByPhoneSuffix(ctx context.Context, tenantID, digits string, limit int) ([]models.Contact, error)
	SearchByEmailDomain(ctx context.Context, tenantID, domain string, limit int) ([]models.Contact, error)
	SearchByName(ctx context.Context, tenantID, name string, limit int) ([]models.Contact, error)
}

// Config contains configuration for the matching service.
type Config struct {
	Scoring             ScoringConfig
	MaxCandidates       int           // Hard cap on returned candidates (default: 50)
	PerSignalFetchLimit int           // Result bound passed to each store query (default: 100)
	StrongSignalScore   float64       // Per-signal score treated as a strong identification (default: 0.9)
	MultiSignalBonus    float64       // Added per extra strong signal, capped at 1.0 (default: 0.05)
	QueryTimeout        time.Duration // Timeout for each per-signal store query (default: 3s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Scoring:             DefaultScoringConfig(),
		MaxCandidates:       50,
		PerSignalFetchLimit: 100,
		StrongSignalScore:   0.9,
		MultiSignalBonus:    0.05,
		QueryTimeout:        3 * time.Second,
	}
}

// Service aggregates per-signal contact lookups into ranked match candidates
type Service struct {
	log    ectologger.Logger
	store  ContactStore
	scorer *Scorer
	cfg    Config
}

// NewService creates a new matching service.
func NewService(log ectologger.Logger, store ContactStore, cfg Config) *Service {
	return &Service{
		log:    log,
		store:  store,
		scorer: NewScorer(cfg.Scoring),
		cfg:    cfg,
	}
}

// signalResult is one per-signal store query outcome
type signalResult struct {
	signal   string
	contacts []models.Contact
	err      error
}

// SuggestMatches resolves the given signals against the contact store and
// returns candidates ranked by blended confidence.
//
// Per candidate the combined score is the maximum of its per-signal scores,
// not a sum: a contact matched by phone alone must not outrank one matched by
// phone and name. When two or more signals each score at the strong tier the
// aggregate gets a small bonus, capped at 1.0.
//
// A failed per-signal query degrades that signal to zero candidates; the
// surviving signals still produce a result.
func (s *Service) SuggestMatches(ctx context.Context, tenantID string, signals models.MatchSignals, limit int) ([]models.MatchCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.SuggestMatches")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.SuggestMatchesDuration.WithLabelValues(tenantID).Observe(time.Since(start).Seconds())
	}()

	if signals.Empty() {
		return nil, ErrNoSignals
	}

	if limit <= 0 || limit > s.cfg.MaxCandidates {
		limit = s.cfg.MaxCandidates
	}

	log := s.log.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"has_phone": signals.Phone != "",
		"has_email": signals.Email != "",
		"has_name":  signals.Name != "",
	})

	results := s.fetchCandidates(ctx, tenantID, signals)

	// Union candidates by contact ID, keeping per-signal scores
	type candidateScores struct {
		contact models.Contact
		scores  map[string]float64
	}
	union := make(map[string]*candidateScores)

	for _, res := range results {
		if res.err != nil {
			log.WithError(res.err).WithFields(map[string]any{"signal": res.signal}).Warn("Signal query failed; excluding from aggregate")
			continue
		}
		for _, contact := range res.contacts {
			score := s.scoreSignal(res.signal, signals, contact)
			if score <= 0 {
				continue
			}
			entry, ok := union[contact.ID]
			if !ok {
				entry = &candidateScores{contact: contact, scores: make(map[string]float64)}
				union[contact.ID] = entry
			}
			if score > entry.scores[res.signal] {
				entry.scores[res.signal] = score
			}
		}
	}

	candidates := make([]models.MatchCandidate, 0, len(union))
	for _, entry := range union {
		candidates = append(candidates, models.MatchCandidate{
			ContactID:   entry.contact.ID,
			DisplayName: entry.contact.DisplayName,
			Endpoints:   entry.contact.Endpoints,
			Confidence:  s.combineScores(entry.scores),
		})
	}

	// Confidence descending, contact ID ascending on ties for determinism
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].ContactID < candidates[j].ContactID
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	log.WithFields(map[string]any{"candidate_count": len(candidates)}).Debug("Suggested matches")

	return candidates, nil
}

// fetchCandidates issues one bounded store query per present signal,
// concurrently, each with its own timeout.
func (s *Service) fetchCandidates(ctx context.Context, tenantID string, signals models.MatchSignals) []signalResult {
	type query struct {
		signal string
		run    func(ctx context.Context) ([]models.Contact, error)
	}

	var queries []query
	if signals.Phone != "" {
		prefix := queryPhonePrefix(signals.Phone, s.cfg.Scoring.PhonePrefixMinDigits)
		queries = append(queries, query{"phone", func(ctx context.Context) ([]models.Contact, error) {
			return s.store.SearchByPhonePrefix(ctx, tenantID, prefix, s.cfg.PerSignalFetchLimit)
		}})
		// A local-format query never prefix-matches an E.164-stored number;
		// the trailing significant digits retrieve that case. Both results
		// fold into the same signal, so no candidate is double counted.
		suffix := normalizers.SignificantPhoneDigits(signals.Phone, s.cfg.Scoring.PhonePrefixMinDigits)
		if suffix != "" {
			queries = append(queries, query{"phone", func(ctx context.Context) ([]models.Contact, error) {
				return s.store.SearchByPhoneSuffix(ctx, tenantID, suffix, s.cfg.PerSignalFetchLimit)
			}})
		}
	}
	if signals.Email != "" {
		domain := normalizers.EmailDomain(signals.Email)
		queries = append(queries, query{"email", func(ctx context.Context) ([]models.Contact, error) {
			return s.store.SearchByEmailDomain(ctx, tenantID, domain, s.cfg.PerSignalFetchLimit)
		}})
	}
	if signals.Name != "" {
		name := normalizers.NormalizeName(signals.Name)
		queries = append(queries, query{"name", func(ctx context.Context) ([]models.Contact, error) {
			return s.store.SearchByName(ctx, tenantID, name, s.cfg.PerSignalFetchLimit)
		}})
	}

	results := make([]signalResult, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q query) {
			defer wg.Done()
			qctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
			defer cancel()
			contacts, err := q.run(qctx)
			results[i] = signalResult{signal: q.signal, contacts: contacts, err: err}
		}(i, q)
	}
	wg.Wait()

	return results
}

// scoreSignal scores one contact against one signal
func (s *Service) scoreSignal(signal string, signals models.MatchSignals, contact models.Contact) float64 {
	switch signal {
	case "phone":
		best := 0.0
		for _, ep := range contact.Endpoints {
			if ep.Type != models.EndpointTypePhone {
				continue
			}
			if score := s.scorer.Phone(signals.Phone, ep.Normalized); score > best {
				best = score
			}
		}
		return best
	case "email":
		best := 0.0
		for _, ep := range contact.Endpoints {
			if ep.Type != models.EndpointTypeEmail {
				continue
			}
			if score := s.scorer.Email(signals.Email, ep.Normalized); score > best {
				best = score
			}
		}
		return best
	case "name":
		return s.scorer.Name(signals.Name, contact.DisplayName)
	default:
		return 0
	}
}

// combineScores blends per-signal scores: max plus a bonus for independent
// strong signals, capped at 1.0.
func (s *Service) combineScores(scores map[string]float64) float64 {
	best := 0.0
	strong := 0
	for _, score := range scores {
		if score > best {
			best = score
		}
		if score >= s.cfg.StrongSignalScore {
			strong++
		}
	}
	if strong >= 2 {
		best += float64(strong-1) * s.cfg.MultiSignalBonus
	}
	if best > 1.0 {
		best = 1.0
	}
	return best
}

// queryPhonePrefix derives the store search prefix for a phone signal: the
// leading significant digits, bounded so the query is never broader than the
// partial-match window.
func queryPhonePrefix(phone string, minDigits int) string {
	digits := normalizers.SignificantPhoneDigits(phone, 0)
	if minDigits > 0 && len(digits) > minDigits {
		digits = digits[:minDigits]
	}
	return digits
}
