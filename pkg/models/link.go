package models

import "time"

// Entity type names used in link refs
const (
	EntityTypeContact EntityType = "contact"
	EntityTypeProject EntityType = "project"
	EntityTypeTodo    EntityType = "todo"
	EntityTypeThread  EntityType = "thread"
)

// EntityType identifies the kind of entity a link endpoint refers to
type EntityType string

// EntityRef is one endpoint of a link: a typed entity identifier
type EntityRef struct {
	Type EntityType `json:"type" validate:"required,oneof=contact project todo thread"`
	ID   string     `json:"id" validate:"required,max=512"`
}

// EntityLink is a stored directional edge between two entities. Every
// accepted link exists as exactly two records: the forward edge and the
// reverse edge with source and target swapped. Records are never updated in
// place; removal deletes both directions.
type EntityLink struct {
	SourceType EntityType `json:"source_type"`
	SourceID   string     `json:"source_id"`
	TargetType EntityType `json:"target_type"`
	TargetRef  string     `json:"target_ref"`
	Label      string     `json:"label,omitempty"`
	AutoLinked bool       `json:"auto_linked"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Key returns the composite identity key for this edge. The same tuple always
// produces the same key, which is what makes link writes idempotent upserts.
func (l EntityLink) Key() string {
	return LinkKey(l.SourceType, l.SourceID, l.TargetType, l.TargetRef)
}

// LinkKey builds the composite key sourceType:sourceId:targetType:targetRef
func LinkKey(sourceType EntityType, sourceID string, targetType EntityType, targetRef string) string {
	return string(sourceType) + ":" + sourceID + ":" + string(targetType) + ":" + targetRef
}
