package models

import "time"

// Event types
const (
	EventTypeOrderPlaced = "ORDER_PLACED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published after an order transaction commits
type OrderPlacedEvent struct {
	BaseEvent
	Notification OrderNotification `json:"notification"`
}

// NewOrderPlacedEvent wraps a committed order summary in an event envelope
func NewOrderPlacedEvent(eventID string, notification OrderNotification) *OrderPlacedEvent {
	return &OrderPlacedEvent{
		BaseEvent: BaseEvent{
			EventID:   eventID,
			EventType: EventTypeOrderPlaced,
			Timestamp: time.Now().UTC(),
		},
		Notification: notification,
	}
}
