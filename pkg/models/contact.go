package models

import "time"

// EndpointType identifies the kind of contact endpoint
type EndpointType string

const (
	EndpointTypePhone EndpointType = "phone"
	EndpointTypeEmail EndpointType = "email"
)

// Endpoint is a typed identifier attached to a contact. The raw form is what
// the source system supplied; the normalized form is what matching uses.
type Endpoint struct {
	ID         string       `json:"id" db:"id"`
	ContactID  string       `json:"contact_id" db:"contact_id"`
	Type       EndpointType `json:"type" db:"endpoint_type"`
	Raw        string       `json:"raw" db:"raw_value"`
	Normalized string       `json:"normalized" db:"normalized_value"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

// Contact is an addressable person or organization owned by the contact store.
// Identity is immutable once created.
type Contact struct {
	ID          string     `json:"id" db:"id"`
	TenantID    string     `json:"tenant_id" db:"tenant_id"`
	DisplayName string     `json:"display_name" db:"display_name"`
	Endpoints   []Endpoint `json:"endpoints" db:"-"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// CreateContactRequest is the payload for creating a contact with endpoints
type CreateContactRequest struct {
	DisplayName string                  `json:"display_name" validate:"required,max=256"`
	Endpoints   []CreateEndpointRequest `json:"endpoints" validate:"dive"`
}

// CreateEndpointRequest is a single endpoint in a contact create request
type CreateEndpointRequest struct {
	Type EndpointType `json:"type" validate:"required,oneof=phone email"`
	Raw  string       `json:"raw" validate:"required,max=320"`
}
