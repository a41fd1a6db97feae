package store

import "context"

// EventStoreInterface defines the interface for event stores
type EventStoreInterface interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error)

	// AppendWithVersion is a conditional append: it succeeds only if the
	// aggregate's latest version equals expectedVersion and returns
	// ErrVersionConflict otherwise. Checkout reservation depends on this to
	// make unit claims race-safe.
	AppendWithVersion(ctx context.Context, aggregateID, aggregateType, eventType string, data any, expectedVersion int) (*Event, error)

	GetEvents(aggregateID string) []Event
	GetEventsFromVersion(ctx context.Context, aggregateID string, version int) []Event
	GetAllEvents() []Event
	GetEventsByType(aggregateType string) []Event

	GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error
}
