package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"consultations/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// fakeOutbox records what the relay did with each claimed event.
type fakeOutbox struct {
	pending    []*domain.OutboxEvent
	claimErr   error
	limits     []int
	dispatched []string
	failed     []failedCall
}

type failedCall struct {
	id            string
	errMsg        string
	nextAttemptAt time.Time
	dead          bool
}

func (f *fakeOutbox) Append(_ context.Context, e *domain.OutboxEvent) error {
	f.pending = append(f.pending, e)
	return nil
}

func (f *fakeOutbox) ClaimPending(_ context.Context, now time.Time, limit int) ([]*domain.OutboxEvent, error) {
	f.limits = append(f.limits, limit)
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	var out []*domain.OutboxEvent
	var rest []*domain.OutboxEvent
	for _, e := range f.pending {
		if len(out) < limit && !e.NextAttemptAt.After(now) {
			out = append(out, e)
			continue
		}
		rest = append(rest, e)
	}
	f.pending = rest
	return out, nil
}

func (f *fakeOutbox) MarkDispatched(_ context.Context, id string, _ time.Time) error {
	f.dispatched = append(f.dispatched, id)
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id, errMsg string, nextAttemptAt time.Time, dead bool) error {
	f.failed = append(f.failed, failedCall{id: id, errMsg: errMsg, nextAttemptAt: nextAttemptAt, dead: dead})
	return nil
}

// fakeUoW hands fn the outbox directly and counts calls.
type fakeUoW struct {
	outbox *fakeOutbox
	calls  int
}

func (u *fakeUoW) Do(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	u.calls++
	return fn(ctx, domain.Repositories{Outbox: u.outbox})
}

type fakeDispatcher struct {
	jobs map[string][]domain.Job
	errs map[string]error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, e *domain.OutboxEvent) ([]domain.Job, error) {
	if err := d.errs[e.ID]; err != nil {
		return nil, err
	}
	return d.jobs[e.ID], nil
}

type publishedJob struct {
	job   domain.Job
	delay time.Duration
}

type recordingQueue struct {
	mu        sync.Mutex
	published []publishedJob
	err       error
}

func (q *recordingQueue) Publish(_ context.Context, job domain.Job, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, publishedJob{job: job, delay: delay})
	return nil
}

// sliceConsumer delivers a fixed list of jobs and records handler results.
type sliceConsumer struct {
	jobs    []domain.Job
	results []error
}

func (c *sliceConsumer) Consume(ctx context.Context, handle func(ctx context.Context, job domain.Job) error) error {
	for _, job := range c.jobs {
		c.results = append(c.results, handle(ctx, job))
	}
	return nil
}

// scriptedHandler fails the first failures calls with err.
type scriptedHandler struct {
	failures int
	err      error
	calls    int
}

func (h *scriptedHandler) Handle(_ context.Context, _ domain.Job) error {
	h.calls++
	if h.calls <= h.failures {
		return h.err
	}
	return nil
}

// expiredRepo implements only the sweeper's query; other methods panic.
type expiredRepo struct {
	domain.ReservationRepository
	ids       []string
	err       error
	gotBefore time.Time
	gotLimit  int
}

func (r *expiredRepo) ListExpiredPending(_ context.Context, createdBefore time.Time, limit int) ([]string, error) {
	r.gotBefore = createdBefore
	r.gotLimit = limit
	return r.ids, r.err
}

// autoRejecter implements only AutoReject.
type autoRejecter struct {
	domain.ReservationService
	results map[string]domain.AutoRejectResult
	errs    map[string]error
	calls   []string
}

func (s *autoRejecter) AutoReject(_ context.Context, id string) (domain.AutoRejectResult, error) {
	s.calls = append(s.calls, id)
	if err := s.errs[id]; err != nil {
		return domain.AutoRejectResult{}, err
	}
	return s.results[id], nil
}

var errBroker = errors.New("broker unavailable")
