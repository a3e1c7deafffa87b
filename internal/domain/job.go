package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobKind selects the handler that executes a job.
type JobKind string

const (
	JobInApp      JobKind = "in_app"
	JobEmail      JobKind = "email"
	JobSMS        JobKind = "sms"
	JobAutoReject JobKind = "auto_reject"
)

// Job is the unit of background work carried on the queue as JSON.
type Job struct {
	ID            string               `json:"id"`
	Kind          JobKind              `json:"kind"`
	EventID       string               `json:"event_id"`
	ReservationID string               `json:"reservation_id,omitempty"`
	RecipientID   string               `json:"recipient_id,omitempty"`
	Category      NotificationCategory `json:"category,omitempty"`
	Template      string               `json:"template,omitempty"`
	Message       string               `json:"message,omitempty"`
	// Attempt counts deliveries of this id, starting at 1.
	Attempt int `json:"attempt"`
	// NotBefore is the earliest instant the job may run; zero means now.
	NotBefore time.Time `json:"not_before,omitzero"`
}

// NewJob returns a job with a fresh id. eventID ties it back to the outbox row.
func NewJob(kind JobKind, eventID string) Job {
	return Job{ID: uuid.NewString(), Kind: kind, EventID: eventID, Attempt: 1}
}

// Delay returns how long until NotBefore, or zero when it has passed.
func (j Job) Delay(now time.Time) time.Duration {
	if j.NotBefore.IsZero() {
		return 0
	}
	if d := j.NotBefore.Sub(now); d > 0 {
		return d
	}
	return 0
}

// JobQueue is the durable queue jobs are published to.
type JobQueue interface {
	// Publish enqueues job. A positive delay defers delivery.
	Publish(ctx context.Context, job Job, delay time.Duration) error
}

// JobHandler executes one job. Returning a permanent error stops retries.
type JobHandler interface {
	Handle(ctx context.Context, job Job) error
}

// JobHandlerFunc adapts a function to JobHandler.
type JobHandlerFunc func(ctx context.Context, job Job) error

func (f JobHandlerFunc) Handle(ctx context.Context, job Job) error { return f(ctx, job) }

// JobConsumer delivers queued jobs to handle until ctx is cancelled. A nil
// return from handle acknowledges the job.
type JobConsumer interface {
	Consume(ctx context.Context, handle func(ctx context.Context, job Job) error) error
}
