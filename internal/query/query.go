package query

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/tradeledger/internal/clock"
	"go.uber.org/zap"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Result is the state of a query after its latest transition. Data keeps the
// last successful value while a refetch is loading or after it failed.
type Result[T any] struct {
	Status    Status
	Data      T
	Err       error
	FetchedAt time.Time
}

func (r Result[T]) Ready() bool { return r.Status == StatusReady }

type Fetcher[T any] func(ctx context.Context) (T, error)

// Query fetches one remote resource on demand and notifies subscribers on
// every state change.
type Query[T any] struct {
	name  string
	fetch Fetcher[T]
	log   *zap.Logger
	clock clock.Clock

	mu          sync.Mutex
	current     Result[T]
	subscribers map[int]func(Result[T])
	nextID      int
}

type Option func(*options)

type options struct {
	clock clock.Clock
}

func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

func New[T any](name string, fetch Fetcher[T], log *zap.Logger, opts ...Option) *Query[T] {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Query[T]{
		name:        name,
		fetch:       fetch,
		log:         log.Named("query").With(zap.String("query", name)),
		clock:       o.clock,
		subscribers: make(map[int]func(Result[T])),
	}
}

// Fetch runs the fetcher and returns the resulting state. Errors are logged
// and carried in the result, never retried.
func (q *Query[T]) Fetch(ctx context.Context) Result[T] {
	q.transition(func(r *Result[T]) {
		r.Status = StatusLoading
		r.Err = nil
	})

	data, err := q.fetch(ctx)
	if err != nil {
		q.log.Warn("fetch failed", zap.Error(err))
		return q.transition(func(r *Result[T]) {
			r.Status = StatusFailed
			r.Err = err
		})
	}

	return q.transition(func(r *Result[T]) {
		r.Status = StatusReady
		r.Data = data
		r.Err = nil
		r.FetchedAt = q.clock.Now()
	})
}

func (q *Query[T]) Current() Result[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// Subscribe registers fn for future state changes and returns a func that
// removes it.
func (q *Query[T]) Subscribe(fn func(Result[T])) func() {
	q.mu.Lock()
	id := q.nextID
	q.nextID++
	q.subscribers[id] = fn
	q.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			delete(q.subscribers, id)
			q.mu.Unlock()
		})
	}
}

func (q *Query[T]) transition(apply func(*Result[T])) Result[T] {
	q.mu.Lock()
	apply(&q.current)
	snapshot := q.current
	subs := make([]func(Result[T]), 0, len(q.subscribers))
	for _, fn := range q.subscribers {
		subs = append(subs, fn)
	}
	q.mu.Unlock()

	// Subscribers run without the lock so they may call back into the query.
	for _, fn := range subs {
		fn(snapshot)
	}
	return snapshot
}
