package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/example/rental-engine/internal/infrastructure/idempotency"
	"github.com/example/rental-engine/internal/infrastructure/kafka"
)

// RunHourJob is the queue payload for a scheduled billing run.
type RunHourJob struct {
	Date string `json:"date"` // YYYY-MM-DD
	Hour int    `json:"hour"`
}

// JobRunner adapts the coordinator to the background job queue. Delivery is
// at-least-once, so runs are claimed on the (date, hour) business key and a
// redelivered job is a no-op.
type JobRunner struct {
	coordinator *Coordinator
	guard       idempotency.Guard
}

func NewJobRunner(coordinator *Coordinator, guard idempotency.Guard) *JobRunner {
	return &JobRunner{coordinator: coordinator, guard: guard}
}

func (r *JobRunner) HandleRunHour(ctx context.Context, job kafka.Job) error {
	var payload RunHourJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return err
	}

	key := fmt.Sprintf("billing-run:%s:%d", payload.Date, payload.Hour)
	first, err := r.guard.First(ctx, key)
	if err != nil {
		return err
	}
	if !first {
		log.Printf("[Billing] Skipping duplicate run for %s hour %d", payload.Date, payload.Hour)
		return nil
	}

	summary, err := r.coordinator.RunHour(ctx, payload.Hour)
	if err != nil {
		return err
	}
	log.Printf("[Billing] Run for %s hour %d: billed %.2f, failed %.2f, %d members, %d items",
		payload.Date, payload.Hour, summary.Billed, summary.Failed, summary.Members, summary.Items)
	return nil
}
