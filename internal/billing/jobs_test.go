package billing

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/example/rental-engine/internal/infrastructure/idempotency"
	"github.com/example/rental-engine/internal/infrastructure/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHourJob(t *testing.T, date string, hour int) kafka.Job {
	t.Helper()
	payload, err := json.Marshal(RunHourJob{Date: date, Hour: hour})
	require.NoError(t, err)
	return kafka.Job{ID: "job-1", Name: kafka.JobRunBillingHour, Payload: payload}
}

func TestJobRunner_HandleRunHour(t *testing.T) {
	c, rs, biller := newTestCoordinator()
	ctx := context.Background()
	runner := NewJobRunner(c, idempotency.NewMemoryGuard())

	seedUser(rs, "user-1", 9, false, false)
	seedCirculatingUnit(rs, "unit-1", "user-1", 1000, "")

	require.NoError(t, runner.HandleRunHour(ctx, runHourJob(t, "2026-08-31", 9)))

	assert.Len(t, biller.invoices, 1)
	assert.Len(t, biller.itemsForUser("user-1"), 1)
}

func TestJobRunner_HandleRunHour_RedeliveryIsNoOp(t *testing.T) {
	c, rs, biller := newTestCoordinator()
	ctx := context.Background()
	runner := NewJobRunner(c, idempotency.NewMemoryGuard())

	seedUser(rs, "user-1", 9, false, false)
	seedCirculatingUnit(rs, "unit-1", "user-1", 1000, "")
	seedUser(rs, "user-2", 10, false, false)
	seedCirculatingUnit(rs, "unit-2", "user-2", 1000, "")

	job := runHourJob(t, "2026-08-31", 9)
	require.NoError(t, runner.HandleRunHour(ctx, job))
	require.NoError(t, runner.HandleRunHour(ctx, job))

	// The second delivery must not double-bill the member
	assert.Len(t, biller.invoices, 1)

	// A different hour on the same day is new work
	require.NoError(t, runner.HandleRunHour(ctx, runHourJob(t, "2026-08-31", 10)))
	assert.Len(t, biller.invoices, 2)
}

func TestJobRunner_HandleRunHour_BadPayload(t *testing.T) {
	c, _, _ := newTestCoordinator()
	runner := NewJobRunner(c, idempotency.NewMemoryGuard())

	err := runner.HandleRunHour(context.Background(), kafka.Job{Payload: json.RawMessage("not json")})

	assert.Error(t, err)
}
