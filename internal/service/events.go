package service

// EventType defines the type of event
type EventType string

const (
	EventSyncStarted   EventType = "sync_started"
	EventListingSynced EventType = "listing_synced"
	EventRecordSkipped EventType = "record_skipped"
	EventSyncFailed    EventType = "sync_failed"
	EventSyncCompleted EventType = "sync_completed"
	EventMirrorReset   EventType = "mirror_reset"
)

// Event represents something the gateway did
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.subscribers = append(eb.subscribers, ch)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
