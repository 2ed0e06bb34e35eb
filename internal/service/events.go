package service

import (
	"pai/internal/audit"
	"pai/internal/provider"
)

// EventType defines the type of event
type EventType string

const (
	EventOperation      EventType = "operation"
	EventHealthChecked  EventType = "health_checked"
	EventConfigReloaded EventType = "config_reloaded"
)

// Event represents something that happened in the service
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// Publisher receives events. Implementations must not block.
type Publisher interface {
	Broadcast(event any)
}

func operationEvent(e audit.Entry) Event {
	return Event{Type: EventOperation, Payload: e}
}

func healthEvent(results []provider.CandidateHealth) Event {
	return Event{Type: EventHealthChecked, Payload: results}
}
