// Package events handles event emission for link graph changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// Emitter publishes link lifecycle events. All emitters are best-effort:
// publishing failures are logged and never propagated, since the link graph
// itself is the source of truth.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitLinkCreated emits a link.created event
func (e *Emitter) EmitLinkCreated(ctx context.Context, tenantID string, link models.EntityLink) {
	e.emit(ctx, "link.created", tenantID, link)
}

// EmitLinkDeleted emits a link.deleted event
func (e *Emitter) EmitLinkDeleted(ctx context.Context, tenantID string, link models.EntityLink) {
	e.emit(ctx, "link.deleted", tenantID, link)
}

// EmitLinkOrphaned emits a link.orphaned event carrying the stranded forward
// key. An external reconciliation job consumes these; bramble never retries.
func (e *Emitter) EmitLinkOrphaned(ctx context.Context, tenantID string, link models.EntityLink) {
	e.emit(ctx, "link.orphaned", tenantID, link)
}

func (e *Emitter) emit(ctx context.Context, eventType, tenantID string, link models.EntityLink) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.emit")
	defer span.End()

	if e.producer == nil {
		return
	}

	event := &kafka.LinkEvent{
		EventType:  eventType,
		TenantID:   tenantID,
		SourceType: link.SourceType,
		SourceID:   link.SourceID,
		TargetType: link.TargetType,
		TargetRef:  link.TargetRef,
		Key:        link.Key(),
		Label:      link.Label,
		AutoLinked: link.AutoLinked,
	}

	if err := e.producer.PublishLinkEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": eventType,
		}).Error("Failed to emit link event")
	}
}
