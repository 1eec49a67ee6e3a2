package retryq

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lessonforge/playback/internal/logx"
)

// PendingRequest is a failed outbound request held for redelivery. The
// descriptor is republishable verbatim: method, target, headers and body are
// everything an attempt needs.
type PendingRequest struct {
	ID         string            `json:"id"`
	Method     string            `json:"method"`
	Target     string            `json:"target"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       []byte            `json:"body,omitempty"`
	EnqueuedAt int64             `json:"enqueued_at"` // unix seconds
	RetryCount int               `json:"retry_count"`
	MaxRetries int               `json:"max_retries"`
}

// Attempter executes one delivery attempt. A nil error resolves the request.
type Attempter interface {
	Attempt(ctx context.Context, req PendingRequest) error
}

// Store persists the queued request list. Failures are best-effort: the
// in-memory queue stays authoritative for the current process lifetime.
type Store interface {
	Load() ([]PendingRequest, error)
	Save(items []PendingRequest) error
}

// Status is an observability snapshot of the queue.
type Status struct {
	Pending   int  `json:"pending"`
	Abandoned int  `json:"abandoned"`
	Online    bool `json:"online"`
	Draining  bool `json:"draining"`
}

// Queue is a durable FIFO of failed outbound requests, drained when
// connectivity returns. A single busy flag guards against concurrent drains.
type Queue struct {
	mu        sync.Mutex
	items     []PendingRequest
	busy      bool
	online    bool
	abandoned int

	store       Store
	attempter   Attempter
	onAbandoned func(PendingRequest)
	now         func() time.Time
	log         zerolog.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock replaces the queue's time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithAbandonedHook registers a callback invoked for every request dropped
// after its retry ceiling was exceeded.
func WithAbandonedHook(fn func(PendingRequest)) Option {
	return func(q *Queue) { q.onAbandoned = fn }
}

// New builds a Queue on the given store and attempter. Requests persisted by
// a previous process are loaded so draining resumes after a restart.
func New(store Store, attempter Attempter, opts ...Option) *Queue {
	q := &Queue{
		store:     store,
		attempter: attempter,
		now:       time.Now,
		log:       logx.WithComponent("retryq"),
	}
	for _, o := range opts {
		o(q)
	}
	items, err := store.Load()
	if err != nil {
		q.log.Error().Err(err).Msg("load persisted queue")
	} else {
		q.items = items
	}
	return q
}

// Enqueue appends a request, persists the queue and returns immediately. An
// empty ID is filled with a fresh UUID.
func (q *Queue) Enqueue(req PendingRequest, maxRetries int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.EnqueuedAt == 0 {
		req.EnqueuedAt = q.now().Unix()
	}
	req.MaxRetries = maxRetries
	q.items = append(q.items, req)
	q.persistLocked()
	q.log.Debug().Str("id", req.ID).Str("target", req.Target).Int("pending", len(q.items)).Msg("request enqueued")
}

// SetOnline updates the reachability flag. Drains only run while online.
func (q *Queue) SetOnline(online bool) {
	q.mu.Lock()
	q.online = online
	q.mu.Unlock()
}

// Drain attempts every currently queued request once, in enqueue order. It
// is re-entrant safe: a second call while a drain is running returns
// immediately. Successful attempts remove the request; failed attempts
// increment the retry count and requeue for the next cycle. A request whose
// retry count has reached its ceiling is dropped before the attempt and
// reported as abandoned.
func (q *Queue) Drain(ctx context.Context) {
	q.mu.Lock()
	if q.busy || !q.online {
		q.mu.Unlock()
		return
	}
	q.busy = true
	n := len(q.items)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.busy = false
		q.mu.Unlock()
	}()

	for i := 0; i < n; i++ {
		q.mu.Lock()
		if !q.online || len(q.items) == 0 {
			q.mu.Unlock()
			return
		}
		req := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		if req.RetryCount >= req.MaxRetries {
			q.abandon(req)
			continue
		}

		err := q.attempter.Attempt(ctx, req)

		q.mu.Lock()
		if err != nil {
			req.RetryCount++
			q.items = append(q.items, req)
			q.log.Warn().Err(err).Str("id", req.ID).Int("retry", req.RetryCount).Msg("delivery attempt failed")
		} else {
			q.log.Debug().Str("id", req.ID).Msg("request delivered")
		}
		q.persistLocked()
		q.mu.Unlock()
	}
}

// Status returns queue counters for observability.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{
		Pending:   len(q.items),
		Abandoned: q.abandoned,
		Online:    q.online,
		Draining:  q.busy,
	}
}

func (q *Queue) abandon(req PendingRequest) {
	q.mu.Lock()
	q.abandoned++
	q.persistLocked()
	q.mu.Unlock()
	q.log.Warn().Str("id", req.ID).Str("target", req.Target).Int("retries", req.RetryCount).Msg("request abandoned: retry ceiling exceeded")
	if q.onAbandoned != nil {
		q.onAbandoned(req)
	}
}

// persistLocked snapshots the queue to the store. Errors are logged, never
// propagated: durability is best-effort and the in-memory list remains
// authoritative.
func (q *Queue) persistLocked() {
	if err := q.store.Save(append([]PendingRequest(nil), q.items...)); err != nil {
		q.log.Error().Err(err).Msg("persist queue")
	}
}
