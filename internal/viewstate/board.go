// Package viewstate keeps the latest result of a filter-driven view and drops
// responses that belong to a superseded filter.
package viewstate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by Wait once the board has been closed.
var ErrClosed = errors.New("viewstate: board closed")

// Loader fetches the view data for one filter.
type Loader[F, T any] func(ctx context.Context, filter F) (T, error)

// Snapshot is the committed state of a board.
type Snapshot[F, T any] struct {
	Generation uint64    `json:"generation"`
	DispatchID string    `json:"dispatchId"`
	Filter     F         `json:"filter"`
	Data       T         `json:"data"`
	Loading    bool      `json:"loading"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Option configures a Board.
type Option func(*options)

type options struct {
	onDiscard func(generation uint64)
	now       func() time.Time
}

// WithDiscardHook registers fn to be called for every response dropped
// because a newer filter was dispatched. Loads ended by Close are not reported.
func WithDiscardHook(fn func(generation uint64)) Option {
	return func(o *options) { o.onDiscard = fn }
}

// WithClock overrides the clock used for UpdatedAt.
func WithClock(fn func() time.Time) Option {
	return func(o *options) { o.now = fn }
}

// Board runs one load per dispatched filter. Each dispatch gets a new
// generation and cancels the previous load; a result is committed only while
// its generation is still current, so the state always reflects the most
// recently dispatched filter.
type Board[F, T any] struct {
	load   Loader[F, T]
	parent context.Context
	opts   options

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	state   Snapshot[F, T]
	settled chan struct{}
	closed  bool
	wg      sync.WaitGroup
}

// NewBoard creates an idle board. Loads run under contexts derived from parent.
func NewBoard[F, T any](parent context.Context, load Loader[F, T], opts ...Option) *Board[F, T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	settled := make(chan struct{})
	close(settled)
	return &Board[F, T]{load: load, parent: parent, opts: o, settled: settled}
}

// Dispatch starts loading filter and returns its generation. Any load still in
// flight is cancelled and its result will be discarded.
func (b *Board[F, T]) Dispatch(filter F) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return b.gen
	}
	if b.cancel != nil {
		b.cancel()
	}
	b.gen++
	gen := b.gen
	ctx, cancel := context.WithCancel(b.parent)
	b.cancel = cancel

	var zero T
	b.state = Snapshot[F, T]{
		Generation: gen,
		DispatchID: uuid.NewString(),
		Filter:     filter,
		Data:       zero,
		Loading:    true,
		UpdatedAt:  b.opts.now(),
	}
	prev := b.settled
	b.settled = make(chan struct{})
	settle(prev)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer cancel()
		data, err := b.load(ctx, filter)
		b.commit(gen, data, err)
	}()
	return gen
}

func (b *Board[F, T]) commit(gen uint64, data T, err error) {
	b.mu.Lock()
	if b.closed || gen != b.gen {
		superseded := gen != b.gen
		b.mu.Unlock()
		if superseded && b.opts.onDiscard != nil {
			b.opts.onDiscard(gen)
		}
		return
	}
	b.state.Data = data
	b.state.Loading = false
	b.state.Error = ""
	if err != nil {
		b.state.Error = err.Error()
	}
	b.state.UpdatedAt = b.opts.now()
	b.cancel = nil
	settle(b.settled)
	b.mu.Unlock()
}

// Snapshot returns the current state.
func (b *Board[F, T]) Snapshot() Snapshot[F, T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Generation returns the most recently dispatched generation.
func (b *Board[F, T]) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

// Wait blocks until the current generation has settled, following any newer
// dispatches made while waiting, and returns the committed state.
func (b *Board[F, T]) Wait(ctx context.Context) (Snapshot[F, T], error) {
	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return Snapshot[F, T]{}, ErrClosed
		}
		if !b.state.Loading {
			state := b.state
			b.mu.Unlock()
			return state, nil
		}
		settled := b.settled
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return b.Snapshot(), ctx.Err()
		case <-settled:
		}
	}
}

// Close cancels any in-flight load and stops accepting dispatches. It waits
// for running loaders to return.
func (b *Board[F, T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	settle(b.settled)
	b.mu.Unlock()
	b.wg.Wait()
}

func settle(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}
