package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job is the envelope for background work. Delivery is at-least-once, so
// handlers key their idempotency on the payload's business id (cart id,
// shipment id), never on Job.ID.
type Job struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Well-known job names
const (
	JobCreateShipment   = "shipment.create"
	JobDeliveryNotice   = "shipment.delivery_notice"
	JobRunBillingHour   = "billing.run_hour"
	JobShipKitConfirmed = "shipkit.confirmed"
)

// Queue enqueues named jobs onto a Kafka topic. One topic per queue;
// consumer-group concurrency is configured on the consuming side.
type Queue struct {
	producer *Producer
}

func NewQueue(brokers []string, topic string) *Queue {
	return &Queue{producer: NewProducer(brokers, topic)}
}

// Enqueue publishes a named job. The key is the job name so all instances of
// one job type land on the same partition in order.
func (q *Queue) Enqueue(ctx context.Context, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	job := Job{
		ID:         uuid.New().String(),
		Name:       name,
		Payload:    data,
		EnqueuedAt: time.Now(),
	}

	return q.producer.Publish(ctx, name, job)
}

func (q *Queue) Close() error {
	return q.producer.Close()
}

// JobHandler processes a single decoded job
type JobHandler func(ctx context.Context, job Job) error

// JobRouter dispatches jobs by name; unknown jobs are skipped
type JobRouter struct {
	handlers map[string]JobHandler
}

func NewJobRouter() *JobRouter {
	return &JobRouter{handlers: make(map[string]JobHandler)}
}

func (r *JobRouter) Handle(name string, handler JobHandler) {
	r.handlers[name] = handler
}

// HandleMessage adapts the router to the consumer's MessageHandler signature
func (r *JobRouter) HandleMessage(ctx context.Context, key, value []byte) error {
	var job Job
	if err := json.Unmarshal(value, &job); err != nil {
		return err
	}
	handler, ok := r.handlers[job.Name]
	if !ok {
		return nil
	}
	return handler(ctx, job)
}
