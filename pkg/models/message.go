package models

import "time"

// InboundMessage is the event the auto-linker consumes. It is produced by the
// message ingestion pipeline; bramble never parses raw SMS or email itself.
type InboundMessage struct {
	ThreadRef   string    `json:"thread_ref" validate:"required,max=512"`
	SenderPhone string    `json:"sender_phone,omitempty"`
	SenderEmail string    `json:"sender_email,omitempty"`
	SenderName  string    `json:"sender_name,omitempty"`
	Content     string    `json:"content,omitempty"`
	ReceivedAt  time.Time `json:"received_at,omitempty"`
}

// AutoLinkMatches lists the entities each auto-link stage accepted
type AutoLinkMatches struct {
	Contacts []string `json:"contacts"`
	Projects []string `json:"projects"`
	Todos    []string `json:"todos"`
}

// AutoLinkResult summarizes one auto-link run. Transient, returned to the
// caller only.
type AutoLinkResult struct {
	LinksCreated int             `json:"links_created"`
	Matches      AutoLinkMatches `json:"matches"`
}
