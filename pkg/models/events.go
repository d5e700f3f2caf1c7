package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of platform event
type EventType string

const (
	EventTypeAssetCreated      EventType = "asset.created"
	EventTypeAssetUpdated      EventType = "asset.updated"
	EventTypeAssetDeleted      EventType = "asset.deleted"
	EventTypeRiskRecalculated  EventType = "risk.recalculated"
	EventTypeRiskLevelChanged  EventType = "risk.level_changed"
	EventTypeSafeguardUpdated  EventType = "safeguard.updated"
	EventTypeImportCompleted   EventType = "import.completed"
	EventTypeCoverageEvaluated EventType = "coverage.evaluated"
)

// BaseEvent represents the base structure for all platform events
type BaseEvent struct {
	ID          string                 `json:"id"`
	Type        EventType              `json:"type"`
	Timestamp   time.Time              `json:"timestamp"`
	Source      string                 `json:"source"`
	EntityID    string                 `json:"entity_id,omitempty"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewEvent creates a new event with a generated id and current timestamp
func NewEvent(eventType EventType, source, entityID, description string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now(),
		Source:      source,
		EntityID:    entityID,
		Description: description,
	}
}
