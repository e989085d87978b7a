package events

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

const (
	EventBookingCreated       = "booking_created"
	EventBookingUpdated       = "booking_updated"
	EventBookingDeleted       = "booking_deleted"
	EventBookingStatusChanged = "booking_status_changed"
	EventGigCreated           = "gig_created"
	EventGigDeleted           = "gig_deleted"
	EventGigStatusChanged     = "gig_status_changed"
	EventBidAdded             = "bid_added"
	EventBidAccepted          = "bid_accepted"
)

// BookingEventPayload is the booking snapshot sent to consumers.
type BookingEventPayload struct {
	BookingID  int64     `json:"booking_id"`
	CustomerID int64     `json:"customer_id"`
	WorkerID   int64     `json:"worker_id"`
	ServiceID  int64     `json:"service_id"`
	Status     string    `json:"status"`
	Version    int64     `json:"version"`
	At         time.Time `json:"at"`
}

// StatusChangedPayload is published for every committed booking or gig transition.
type StatusChangedPayload struct {
	Entity   string    `json:"entity"`
	EntityID int64     `json:"entity_id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	At       time.Time `json:"at"`
}

type GigEventPayload struct {
	GigID      int64     `json:"gig_id"`
	CustomerID int64     `json:"customer_id"`
	ServiceID  int64     `json:"service_id"`
	Status     string    `json:"status"`
	At         time.Time `json:"at"`
}

type BidEventPayload struct {
	BidID    int64     `json:"bid_id"`
	GigID    int64     `json:"gig_id"`
	WorkerID int64     `json:"worker_id"`
	Amount   string    `json:"amount"`
	At       time.Time `json:"at"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	seq         atomic.Int64
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for one or more event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, eventType := range eventTypes {
		b.subscribers[eventType] = append(b.subscribers[eventType], handler)
	}
}

// Publish runs every handler of the event type in order. Handler errors are
// joined and returned; one failing handler does not stop the rest.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.ID == 0 {
		event.ID = b.seq.Add(1)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&event)
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now().UTC()}, nil
}
