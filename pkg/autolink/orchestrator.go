// Package autolink connects inbound messages to the entities they concern.
// A run is two strictly ordered stages: first the sender is identified
// against the contact book, then the message content is matched against
// projects and todos. The second stage is gated on the first. An unknown
// sender produces zero links and zero search calls, so message content from
// unidentified senders never reaches the search backend.
package autolink

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

const (
	// SenderLinkLabel marks the thread-to-contact edge for an identified sender
	SenderLinkLabel = "inbound-message-sender"

	// ContentLinkLabel marks edges produced by content matching
	ContentLinkLabel = "content-match"

	// senderCandidateLimit bounds the sender match fetch; more than a couple
	// of exact-tier candidates for one message is already suspect.
	senderCandidateLimit = 5
)

// Matcher suggests contact candidates for a set of identity signals
type Matcher interface {
	SuggestMatches(ctx context.Context, tenantID string, signals models.MatchSignals, limit int) ([]models.MatchCandidate, error)
}

// Searcher runs semantic queries against the search backend
type Searcher interface {
	Search(ctx context.Context, tenantID, query, kind string, limit int) ([]models.SearchResult, error)
}

// Linker writes symmetric entity links
type Linker interface {
	CreateLink(ctx context.Context, tenantID string, source, target models.EntityRef, label string, autoLinked bool) bool
}

// Config holds auto-link tuning knobs
type Config struct {
	// LinkThreshold is the minimum content match score that produces a link
	LinkThreshold float64
	// SenderMatchScore is the minimum confidence to treat a contact as the sender
	SenderMatchScore float64
	// SearchLimit caps results fetched per content kind
	SearchLimit int
	// MaxContentLength truncates message content before it is sent to search
	MaxContentLength int
}

// DefaultConfig returns the default auto-link configuration
func DefaultConfig() Config {
	return Config{
		LinkThreshold:    0.75,
		SenderMatchScore: 0.9,
		SearchLimit:      10,
		MaxContentLength: 512,
	}
}

// Orchestrator runs the auto-link pipeline for inbound messages
type Orchestrator struct {
	log      ectologger.Logger
	matcher  Matcher
	searcher Searcher
	linker   Linker
	cfg      Config
}

// NewOrchestrator creates a new auto-link orchestrator
func NewOrchestrator(log ectologger.Logger, matcher Matcher, searcher Searcher, linker Linker, cfg Config) *Orchestrator {
	if cfg.LinkThreshold <= 0 {
		cfg.LinkThreshold = DefaultConfig().LinkThreshold
	}
	if cfg.SenderMatchScore <= 0 {
		cfg.SenderMatchScore = DefaultConfig().SenderMatchScore
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultConfig().SearchLimit
	}
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = DefaultConfig().MaxContentLength
	}

	return &Orchestrator{
		log:      log,
		matcher:  matcher,
		searcher: searcher,
		linker:   linker,
		cfg:      cfg,
	}
}

// Run processes one inbound message. threshold overrides the configured
// LinkThreshold when positive. Run never returns an error and never panics;
// any failure inside a stage degrades to fewer links.
func (o *Orchestrator) Run(ctx context.Context, tenantID string, msg models.InboundMessage, threshold float64) (result models.AutoLinkResult) {
	ctx, span := tracing.StartSpan(ctx, "autolink.Orchestrator.Run")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			o.log.WithContext(ctx).WithFields(map[string]any{
				"tenant_id":  tenantID,
				"thread_ref": msg.ThreadRef,
				"panic":      r,
			}).Error("Recovered panic in auto-link run")
			result = models.AutoLinkResult{}
		}
	}()

	if threshold <= 0 {
		threshold = o.cfg.LinkThreshold
	}

	log := o.log.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":  tenantID,
		"thread_ref": msg.ThreadRef,
	})

	senders := o.identifySenders(ctx, tenantID, msg)
	if len(senders) == 0 {
		log.Info("Sender not identified; skipping content matching")
		metrics.AutoLinkRunsTotal.WithLabelValues(tenantID, "blocked").Inc()
		return models.AutoLinkResult{}
	}

	thread := models.EntityRef{Type: models.EntityTypeThread, ID: msg.ThreadRef}

	for _, sender := range senders {
		if o.linker.CreateLink(ctx, tenantID, thread, models.EntityRef{Type: models.EntityTypeContact, ID: sender.ContactID}, SenderLinkLabel, true) {
			result.LinksCreated++
			result.Matches.Contacts = append(result.Matches.Contacts, sender.ContactID)
		}
	}

	// Content matching is gated on a written sender link, not just an
	// identification: an unlinked message must not reach the search backend.
	if len(result.Matches.Contacts) == 0 {
		log.Warn("No sender link could be written; skipping content matching")
		metrics.AutoLinkRunsTotal.WithLabelValues(tenantID, "blocked").Inc()
		return result
	}
	metrics.AutoLinkRunsTotal.WithLabelValues(tenantID, "passed").Inc()

	query := sanitizeContent(msg.Content, o.cfg.MaxContentLength)
	if query == "" {
		return result
	}

	for _, kind := range []string{"project", "todo"} {
		hits, err := o.searcher.Search(ctx, tenantID, query, kind, o.cfg.SearchLimit)
		if err != nil {
			log.WithError(err).WithFields(map[string]any{
				"kind": kind,
			}).Warn("Content search failed; continuing with remaining kinds")
			continue
		}

		for _, hit := range hits {
			if hit.Score < threshold {
				continue
			}

			target, ok := mapKind(hit)
			if !ok {
				log.WithFields(map[string]any{
					"kind":      hit.Kind,
					"result_id": hit.ID,
				}).Debug("Skipping search result of unknown kind")
				continue
			}

			if !o.linker.CreateLink(ctx, tenantID, thread, target, ContentLinkLabel, true) {
				continue
			}
			result.LinksCreated++
			switch target.Type {
			case models.EntityTypeProject:
				result.Matches.Projects = append(result.Matches.Projects, target.ID)
			case models.EntityTypeTodo:
				result.Matches.Todos = append(result.Matches.Todos, target.ID)
			}
		}
	}

	log.WithFields(map[string]any{
		"links_created": result.LinksCreated,
		"sender_count":  len(result.Matches.Contacts),
	}).Info("Auto-link run complete")

	return result
}

// identifySenders resolves the message sender to contacts. Only candidates
// clearing the sender confidence bar count; anything below it is treated as
// unknown, not as a weak match.
func (o *Orchestrator) identifySenders(ctx context.Context, tenantID string, msg models.InboundMessage) []models.MatchCandidate {
	signals := models.MatchSignals{
		Phone: msg.SenderPhone,
		Email: msg.SenderEmail,
		Name:  msg.SenderName,
	}
	if signals.Empty() {
		return nil
	}

	candidates, err := o.matcher.SuggestMatches(ctx, tenantID, signals, senderCandidateLimit)
	if err != nil {
		o.log.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": tenantID,
		}).Warn("Sender match lookup failed")
		return nil
	}

	var senders []models.MatchCandidate
	for _, c := range candidates {
		if c.Confidence >= o.cfg.SenderMatchScore {
			senders = append(senders, c)
		}
	}
	return senders
}

// mapKind translates a search result kind into a linkable entity ref
func mapKind(hit models.SearchResult) (models.EntityRef, bool) {
	switch strings.ToLower(hit.Kind) {
	case "project":
		return models.EntityRef{Type: models.EntityTypeProject, ID: hit.ID}, true
	case "todo", "task":
		return models.EntityRef{Type: models.EntityTypeTodo, ID: hit.ID}, true
	default:
		return models.EntityRef{}, false
	}
}

// sanitizeContent strips control characters, collapses whitespace and
// truncates the message body before it leaves the process.
func sanitizeContent(content string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(content))
	lastSpace := true
	for _, r := range content {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}

	out := strings.TrimSpace(b.String())
	if len(out) > maxLen {
		// Back off to a rune boundary so the cut never leaves a partial
		// multi-byte character at the end.
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut]
		if idx := strings.LastIndexByte(out, ' '); idx > 0 {
			out = out[:idx]
		}
	}
	return out
}
