package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_JSONMarshalUnmarshal(t *testing.T) {
	state := map[string]interface{}{
		"id":     "unit-123",
		"status": "WITHMEMBER",
		"points": 1200,
	}
	stateJSON, err := json.Marshal(state)
	require.NoError(t, err)

	original := Snapshot{
		AggregateID:   "unit-123",
		AggregateType: "InventoryUnit",
		Version:       25,
		State:         stateJSON,
		CreatedAt:     time.Now().Truncate(time.Second),
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var restored Snapshot
	err = json.Unmarshal(data, &restored)
	require.NoError(t, err)

	assert.Equal(t, original.AggregateID, restored.AggregateID)
	assert.Equal(t, original.AggregateType, restored.AggregateType)
	assert.Equal(t, original.Version, restored.Version)
	assert.JSONEq(t, string(original.State), string(restored.State))
}

func TestSnapshotThreshold(t *testing.T) {
	assert.Equal(t, 20, SnapshotThreshold)
}

func TestSnapshot_StateContainsValidJSON(t *testing.T) {
	type UnitState struct {
		ID              string `json:"id"`
		ProductID       string `json:"product_id"`
		Status          string `json:"status"`
		CurrentMemberID string `json:"current_member_id"`
	}

	originalState := UnitState{
		ID:              "unit-123",
		ProductID:       "prod-456",
		Status:          "WITHMEMBER",
		CurrentMemberID: "member-789",
	}

	stateJSON, err := json.Marshal(originalState)
	require.NoError(t, err)

	snapshot := &Snapshot{
		AggregateID:   "unit-123",
		AggregateType: "InventoryUnit",
		Version:       20,
		State:         stateJSON,
		CreatedAt:     time.Now(),
	}

	var restoredState UnitState
	err = json.Unmarshal(snapshot.State, &restoredState)
	require.NoError(t, err)

	assert.Equal(t, originalState.ID, restoredState.ID)
	assert.Equal(t, originalState.ProductID, restoredState.ProductID)
	assert.Equal(t, originalState.Status, restoredState.Status)
	assert.Equal(t, originalState.CurrentMemberID, restoredState.CurrentMemberID)
}

func TestEventStore_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	es := NewEventStore(nil)

	got, err := es.GetSnapshot(ctx, "unit-123")
	require.NoError(t, err)
	assert.Nil(t, got)

	first := &Snapshot{
		AggregateID:   "unit-123",
		AggregateType: "InventoryUnit",
		Version:       20,
		State:         json.RawMessage(`{"status":"INWAREHOUSE"}`),
		CreatedAt:     time.Now(),
	}
	require.NoError(t, es.SaveSnapshot(ctx, first))

	got, err = es.GetSnapshot(ctx, "unit-123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 20, got.Version)

	// Saving again replaces the previous snapshot
	second := &Snapshot{
		AggregateID:   "unit-123",
		AggregateType: "InventoryUnit",
		Version:       40,
		State:         json.RawMessage(`{"status":"WITHMEMBER"}`),
		CreatedAt:     time.Now(),
	}
	require.NoError(t, es.SaveSnapshot(ctx, second))

	got, err = es.GetSnapshot(ctx, "unit-123")
	require.NoError(t, err)
	assert.Equal(t, 40, got.Version)
}
