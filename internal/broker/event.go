package broker

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventCategorySaved        = "CategorySaved"
	EventCategoryDeleted      = "CategoryDeleted"
	EventProductCreated       = "ProductCreated"
	EventBundleMembersChanged = "BundleMembersChanged"
	EventProductDeleted       = "ProductDeleted"
)

// Event is the envelope published for every catalog write.
type Event struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	AggregateID string    `json:"aggregate_id"`
	Payload     any       `json:"payload,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewEvent(eventType, aggregateID string, payload any) Event {
	return Event{
		EventID:     uuid.New().String(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     payload,
		Timestamp:   time.Now().UTC(),
	}
}

type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// NopDispatcher drops events. Used when no brokers are configured.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(context.Context, Event) error { return nil }
