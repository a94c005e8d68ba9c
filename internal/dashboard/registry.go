package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/upstream"
	"github.com/retailhq/headoffice/internal/viewstate"
)

// Board is the per-session dashboard board.
type Board = viewstate.Board[reporting.DateFilter, Summary]

// Snapshot is the committed state of a Board.
type Snapshot = viewstate.Snapshot[reporting.DateFilter, Summary]

type entry struct {
	board    *Board
	token    string
	lastUsed time.Time
}

// Registry owns one Board per session and evicts idle ones.
type Registry struct {
	parent  context.Context
	load    viewstate.Loader[reporting.DateFilter, Summary]
	idleTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time

	discarded prometheus.Counter
	active    prometheus.Gauge

	mu     sync.Mutex
	boards map[string]*entry
}

// NewRegistry creates a registry whose boards load with load. Loads run under
// contexts derived from parent; registerer may be nil.
func NewRegistry(parent context.Context, load viewstate.Loader[reporting.DateFilter, Summary], idleTTL time.Duration, logger *slog.Logger, registerer prometheus.Registerer) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		parent:  parent,
		load:    load,
		idleTTL: idleTTL,
		logger:  logger,
		now:     time.Now,
		boards:  make(map[string]*entry),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "headoffice_dashboard_discarded_total",
			Help: "Dashboard responses dropped because a newer filter was dispatched.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "headoffice_dashboard_boards",
			Help: "Dashboard boards currently held in memory.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(r.discarded, r.active)
	}
	return r
}

// WithNow overrides the clock used for idle tracking.
func (r *Registry) WithNow(fn func() time.Time) {
	if fn != nil {
		r.now = fn
	}
}

// Board returns the session's board, creating it on first use. token is the
// API token loads are made with; a board built for another token is closed
// and replaced.
func (r *Registry) Board(sessionID, token string) *Board {
	r.mu.Lock()
	e, ok := r.boards[sessionID]
	if ok && e.token == token {
		e.lastUsed = r.now()
		r.mu.Unlock()
		return e.board
	}
	board := viewstate.NewBoard(upstream.WithToken(r.parent, token), r.load,
		viewstate.WithDiscardHook(func(uint64) { r.discarded.Inc() }),
		viewstate.WithClock(r.now),
	)
	r.boards[sessionID] = &entry{board: board, token: token, lastUsed: r.now()}
	r.active.Set(float64(len(r.boards)))
	r.mu.Unlock()
	if ok {
		e.board.Close()
	}
	return board
}

// Lookup returns an existing board without creating one.
func (r *Registry) Lookup(sessionID string) (*Board, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.boards[sessionID]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.board, true
}

// Close tears down the session's board, cancelling any load in flight.
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	e, ok := r.boards[sessionID]
	delete(r.boards, sessionID)
	r.active.Set(float64(len(r.boards)))
	r.mu.Unlock()
	if ok {
		e.board.Close()
	}
}

// Len returns the number of live boards.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}

// Sweep closes boards idle for longer than the idle TTL and returns how many
// were evicted.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)
	var idle []*Board
	r.mu.Lock()
	for id, e := range r.boards {
		if e.lastUsed.Before(cutoff) {
			idle = append(idle, e.board)
			delete(r.boards, id)
		}
	}
	r.active.Set(float64(len(r.boards)))
	r.mu.Unlock()
	for _, b := range idle {
		b.Close()
	}
	return len(idle)
}

// Run sweeps idle boards every interval until ctx is done, then closes every
// remaining board.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("dashboard boards evicted", slog.Int("count", n))
			}
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	boards := r.boards
	r.boards = make(map[string]*entry)
	r.active.Set(0)
	r.mu.Unlock()
	for _, e := range boards {
		e.board.Close()
	}
}
