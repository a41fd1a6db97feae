package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"sync"
)

// PostgresReadStore persists read models as JSONB documents in a single
// read_models table keyed by (collection, id). Each collection registers a
// factory so rows can be decoded back into their concrete type; collections
// without a factory decode to map[string]any.
type PostgresReadStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	factories map[string]func() any
}

func NewPostgresReadStore(db *sql.DB) *PostgresReadStore {
	return &PostgresReadStore{
		db:        db,
		factories: make(map[string]func() any),
	}
}

// RegisterCollection sets the factory used to decode rows of a collection
func (rs *PostgresReadStore) RegisterCollection(collection string, factory func() any) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.factories[collection] = factory
}

func (rs *PostgresReadStore) decode(collection string, raw []byte) any {
	rs.mu.RLock()
	factory, ok := rs.factories[collection]
	rs.mu.RUnlock()

	if !ok {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil
		}
		return m
	}

	model := factory()
	if err := json.Unmarshal(raw, model); err != nil {
		log.Printf("[ReadStore] Failed to decode %s row: %v", collection, err)
		return nil
	}
	return model
}

// Set stores a read model
func (rs *PostgresReadStore) Set(collection, id string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("[ReadStore] Failed to marshal %s/%s: %v", collection, id, err)
		return
	}

	_, err = rs.db.ExecContext(context.Background(),
		`INSERT INTO read_models (collection, id, data)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`,
		collection, id, raw,
	)
	if err != nil {
		log.Printf("[ReadStore] Failed to set %s/%s: %v", collection, id, err)
	}
}

// Get retrieves a read model by id
func (rs *PostgresReadStore) Get(collection, id string) (any, bool) {
	var raw []byte
	err := rs.db.QueryRowContext(context.Background(),
		"SELECT data FROM read_models WHERE collection = $1 AND id = $2",
		collection, id,
	).Scan(&raw)
	if err != nil {
		return nil, false
	}

	model := rs.decode(collection, raw)
	if model == nil {
		return nil, false
	}
	return model, true
}

// GetAll retrieves all items in a collection
func (rs *PostgresReadStore) GetAll(collection string) []any {
	rows, err := rs.db.QueryContext(context.Background(),
		"SELECT data FROM read_models WHERE collection = $1",
		collection,
	)
	if err != nil {
		log.Printf("[ReadStore] Failed to list %s: %v", collection, err)
		return nil
	}
	defer rows.Close()

	var items []any
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			continue
		}
		if model := rs.decode(collection, raw); model != nil {
			items = append(items, model)
		}
	}
	return items
}

// Find retrieves all items in a collection matching the predicate
func (rs *PostgresReadStore) Find(collection string, match func(any) bool) []any {
	var items []any
	for _, item := range rs.GetAll(collection) {
		if match(item) {
			items = append(items, item)
		}
	}
	return items
}

// Delete removes a read model
func (rs *PostgresReadStore) Delete(collection, id string) {
	_, err := rs.db.ExecContext(context.Background(),
		"DELETE FROM read_models WHERE collection = $1 AND id = $2",
		collection, id,
	)
	if err != nil {
		log.Printf("[ReadStore] Failed to delete %s/%s: %v", collection, id, err)
	}
}

// Update modifies a read model using an update function
func (rs *PostgresReadStore) Update(collection, id string, updateFn func(current any) any) bool {
	current, ok := rs.Get(collection, id)
	if !ok {
		return false
	}
	rs.Set(collection, id, updateFn(current))
	return true
}
