package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/bramble/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Trace context (extracted from Kafka headers)
	TraceParent string

	// Parsed content
	InboundMessage *models.InboundMessage
}

// ParseInboundMessage parses the message value as an inbound message event
func (m *IncomingMessage) ParseInboundMessage() error {
	var msg models.InboundMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return err
	}
	m.InboundMessage = &msg
	return nil
}

// GetTenantID returns the tenant ID carried in the message headers
func (m *IncomingMessage) GetTenantID() string {
	if v := m.Headers["tenant_id"]; v != "" {
		return v
	}
	return m.Headers["X-Tenant-Id"]
}
