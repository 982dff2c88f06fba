package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Status is the delivery state of an outbox event.
type Status string

const (
	Pending    Status = "pending"
	Processing Status = "processing"
	Processed  Status = "processed"
	Failed     Status = "failed"
)

const (
	PhotoCreated EventType = "photo.created"
	PhotoRemoved EventType = "photo.removed"
)

// OutboxEvent is a photo lifecycle event written in the same transaction as
// the row change it describes.
type OutboxEvent struct {
	ID          uuid.UUID  `json:"id"`
	AggregateID int64      `json:"aggregate_id"`
	Type        EventType  `json:"type"`
	Payload     []byte     `json:"payload"`
	Status      Status     `json:"status"` // pending, processing, processed, failed
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	RetryCount  int        `json:"retry_count"`
}
