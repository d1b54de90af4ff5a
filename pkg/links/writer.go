// Package links maintains the symmetric entity-link graph. Every accepted
// link is stored as two records in the item store: the forward edge and the
// reverse edge with the halves swapped. The backing store is a flat key/value
// API with no multi-key atomicity, so the writer substitutes a compensating
// delete for a transaction: if the reverse write fails the forward record is
// removed again, and a rollback that itself fails leaves a known, loudly
// reported orphan rather than a silent inconsistency.
package links

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/itemstore"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// EventSink receives link lifecycle notifications. Satisfied by events.Emitter.
type EventSink interface {
	EmitLinkCreated(ctx context.Context, tenantID string, link models.EntityLink)
	EmitLinkDeleted(ctx context.Context, tenantID string, link models.EntityLink)
	EmitLinkOrphaned(ctx context.Context, tenantID string, link models.EntityLink)
}

// Writer creates and tears down symmetric link edges
type Writer struct {
	log    ectologger.Logger
	store  itemstore.Store
	events EventSink
}

// NewWriter creates a new link writer. events may be nil.
func NewWriter(log ectologger.Logger, store itemstore.Store, events EventSink) *Writer {
	return &Writer{
		log:    log,
		store:  store,
		events: events,
	}
}

// linkCollection scopes link records per tenant; keys inside the collection
// are the pure composite edge keys.
func linkCollection(tenantID string) string {
	return "entity_links:" + tenantID
}

// refTag is the tag each edge carries for its source endpoint, used for
// traversal reads.
func refTag(t models.EntityType, id string) string {
	return "ref:" + string(t) + ":" + id
}

// CreateLink writes the forward and reverse edges for (source, target).
// Returns true only when both writes succeeded. Re-invoking with identical
// arguments after a success is an upsert on the same two keys, not a
// duplicate edge.
func (w *Writer) CreateLink(ctx context.Context, tenantID string, source, target models.EntityRef, label string, autoLinked bool) bool {
	ctx, span := tracing.StartSpan(ctx, "links.Writer.CreateLink")
	defer span.End()

	now := time.Now().UTC()
	forward := models.EntityLink{
		SourceType: source.Type,
		SourceID:   source.ID,
		TargetType: target.Type,
		TargetRef:  target.ID,
		Label:      label,
		AutoLinked: autoLinked,
		CreatedAt:  now,
	}
	reverse := models.EntityLink{
		SourceType: target.Type,
		SourceID:   target.ID,
		TargetType: source.Type,
		TargetRef:  source.ID,
		Label:      label,
		AutoLinked: autoLinked,
		CreatedAt:  now,
	}

	collection := linkCollection(tenantID)
	log := w.log.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"link_key":  forward.Key(),
	})

	if _, err := w.store.Put(ctx, collection, forward.Key(), forward, []string{refTag(source.Type, source.ID)}); err != nil {
		log.WithError(err).Warn("Forward link write failed")
		metrics.LinksTotal.WithLabelValues(tenantID, "failed").Inc()
		return false
	}

	if _, err := w.store.Put(ctx, collection, reverse.Key(), reverse, []string{refTag(target.Type, target.ID)}); err != nil {
		log.WithError(err).Warn("Reverse link write failed; rolling back forward edge")

		if _, delErr := w.store.Delete(ctx, collection, forward.Key()); delErr != nil {
			// The one state that violates the both-or-neither invariant.
			// It must be observable: distinct log signal, counter, event.
			log.WithError(delErr).Error("orphaned forward link - partial state")
			metrics.OrphanedLinksTotal.WithLabelValues(tenantID).Inc()
			if w.events != nil {
				w.events.EmitLinkOrphaned(ctx, tenantID, forward)
			}
		} else {
			metrics.LinksTotal.WithLabelValues(tenantID, "rolled_back").Inc()
		}
		return false
	}

	metrics.LinksTotal.WithLabelValues(tenantID, "created").Inc()
	if w.events != nil {
		w.events.EmitLinkCreated(ctx, tenantID, forward)
	}
	return true
}

// DeleteLink removes both directions of the (source, target) edge. Returns
// true when at least one direction existed and both deletes succeeded.
func (w *Writer) DeleteLink(ctx context.Context, tenantID string, source, target models.EntityRef) bool {
	ctx, span := tracing.StartSpan(ctx, "links.Writer.DeleteLink")
	defer span.End()

	collection := linkCollection(tenantID)
	forwardKey := models.LinkKey(source.Type, source.ID, target.Type, target.ID)
	reverseKey := models.LinkKey(target.Type, target.ID, source.Type, source.ID)

	log := w.log.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"link_key":  forwardKey,
	})

	forwardExisted, err := w.store.Delete(ctx, collection, forwardKey)
	if err != nil {
		log.WithError(err).Warn("Forward link delete failed")
		return false
	}
	reverseExisted, err := w.store.Delete(ctx, collection, reverseKey)
	if err != nil {
		log.WithError(err).Warn("Reverse link delete failed")
		return false
	}

	if !forwardExisted && !reverseExisted {
		return false
	}

	if w.events != nil {
		w.events.EmitLinkDeleted(ctx, tenantID, models.EntityLink{
			SourceType: source.Type,
			SourceID:   source.ID,
			TargetType: target.Type,
			TargetRef:  target.ID,
		})
	}
	return true
}

// ListLinks returns the outgoing edges of the given entity
func (w *Writer) ListLinks(ctx context.Context, tenantID string, ref models.EntityRef, limit int) ([]models.EntityLink, error) {
	ctx, span := tracing.StartSpan(ctx, "links.Writer.ListLinks")
	defer span.End()

	items, err := w.store.ListByTag(ctx, linkCollection(tenantID), refTag(ref.Type, ref.ID), limit)
	if err != nil {
		return nil, err
	}

	out := make([]models.EntityLink, 0, len(items))
	for _, item := range items {
		var link models.EntityLink
		if err := json.Unmarshal(item.Data, &link); err != nil {
			w.log.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"item_key": item.Key,
			}).Warn("Skipping undecodable link record")
			continue
		}
		out = append(out, link)
	}
	return out, nil
}
