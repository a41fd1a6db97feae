package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/example/rental-engine/internal/infrastructure/kafka"
	"github.com/google/uuid"
)

// ErrVersionConflict is returned by AppendWithVersion when another writer
// appended to the aggregate first. Callers reload and retry or give up.
var ErrVersionConflict = errors.New("aggregate version conflict")

// Event represents a domain event
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// MarshalJSON returns the JSON encoding of the event
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	return json.Marshal(&struct{ Alias }{Alias: Alias(e)})
}

// EventStore is an in-memory event store that publishes appended events to
// Kafka. Used for tests and single-process runs; production deployments use
// PostgresEventStore or DynamoEventStore.
type EventStore struct {
	mu       sync.RWMutex
	events   map[string][]Event // aggregateID -> events
	snaps    map[string]*Snapshot
	producer *kafka.Producer
}

func NewEventStore(producer *kafka.Producer) *EventStore {
	return &EventStore{
		events:   make(map[string][]Event),
		snaps:    make(map[string]*Snapshot),
		producer: producer,
	}
}

// Append stores an event and publishes it to Kafka
func (es *EventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	return es.append(ctx, aggregateID, aggregateType, eventType, data, -1)
}

// AppendWithVersion stores an event only if the aggregate is still at
// expectedVersion. A concurrent append wins the slot and the loser gets
// ErrVersionConflict.
func (es *EventStore) AppendWithVersion(ctx context.Context, aggregateID, aggregateType, eventType string, data any, expectedVersion int) (*Event, error) {
	return es.append(ctx, aggregateID, aggregateType, eventType, data, expectedVersion)
}

func (es *EventStore) append(ctx context.Context, aggregateID, aggregateType, eventType string, data any, expectedVersion int) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	es.mu.Lock()
	current := len(es.events[aggregateID])
	if expectedVersion >= 0 && current != expectedVersion {
		es.mu.Unlock()
		return nil, ErrVersionConflict
	}
	event := Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now(),
		Version:       current + 1,
	}
	es.events[aggregateID] = append(es.events[aggregateID], event)
	es.mu.Unlock()

	// Publish to Kafka
	if es.producer != nil {
		if err := es.producer.Publish(ctx, aggregateID, event); err != nil {
			return nil, err
		}
	}

	return &event, nil
}

// GetEvents returns all events for an aggregate
func (es *EventStore) GetEvents(aggregateID string) []Event {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return es.events[aggregateID]
}

// GetEventsFromVersion returns events for an aggregate after the given version
func (es *EventStore) GetEventsFromVersion(ctx context.Context, aggregateID string, version int) []Event {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var events []Event
	for _, e := range es.events[aggregateID] {
		if e.Version > version {
			events = append(events, e)
		}
	}
	return events
}

// GetAllEvents returns all events
func (es *EventStore) GetAllEvents() []Event {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var all []Event
	for _, events := range es.events {
		all = append(all, events...)
	}
	return all
}

// GetEventsByType returns all events of a specific aggregate type
func (es *EventStore) GetEventsByType(aggregateType string) []Event {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var matched []Event
	for _, events := range es.events {
		for _, e := range events {
			if e.AggregateType == aggregateType {
				matched = append(matched, e)
			}
		}
	}
	return matched
}

// GetSnapshot returns the latest snapshot for an aggregate, nil if none exists
func (es *EventStore) GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return es.snaps[aggregateID], nil
}

// SaveSnapshot stores a snapshot, replacing any previous one
func (es *EventStore) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.snaps[snapshot.AggregateID] = snapshot
	return nil
}
