package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"nft-storefront/internal/domain"
	"nft-storefront/internal/observability"
)

// Source produces an aggregation result for a session.
type Source interface {
	Aggregate(ctx context.Context, session *domain.Session) ([]domain.EnrichedCollection, error)
}

// Snapshot is the displayed state of a collection list.
type Snapshot struct {
	Seq         uint64                      `json:"seq"`
	Collections []domain.EnrichedCollection `json:"collections"`
	Loading     bool                        `json:"loading"`
	Refreshing  bool                        `json:"refreshing"`
	Error       string                      `json:"error,omitempty"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

// Board holds the displayed collection list for one client.
// Each run is tagged with a sequence number; a result is applied only
// if no newer run was issued after it, so a slow run never overwrites a fresher one.
type Board struct {
	source Source
	logger *zap.Logger

	mu      sync.Mutex
	issued  uint64
	state   Snapshot
	closed  bool
	settled chan struct{} // closed and replaced whenever the state settles
	subs    map[int]chan Snapshot
	nextID  int
}

// NewBoard creates a Board in the initial loading state.
func NewBoard(source Source, logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Board{
		source: source,
		logger: logger,
		state: Snapshot{
			Collections: []domain.EnrichedCollection{},
			Loading:     true,
		},
		settled: make(chan struct{}),
		subs:    make(map[int]chan Snapshot),
	}
}

// Begin issues the next sequence number.
func (b *Board) Begin(refreshing bool) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.beginLocked(refreshing)
}

func (b *Board) beginLocked(refreshing bool) uint64 {
	b.issued++
	if refreshing {
		b.state.Refreshing = true
	}
	return b.issued
}

// InFlight reports whether an issued run has not settled yet.
func (b *Board) InFlight() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlightLocked()
}

func (b *Board) inFlightLocked() bool {
	return !b.closed && b.issued > b.state.Seq
}

// Apply replaces the displayed list if seq is still the latest issued.
// Returns false when the result was stale and discarded.
func (b *Board) Apply(seq uint64, collections []domain.EnrichedCollection) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if seq != b.issued || b.closed {
		observability.RecordStaleResult()
		b.logger.Debug("discarding stale collections", zap.Uint64("seq", seq))
		return false
	}

	if collections == nil {
		collections = []domain.EnrichedCollection{}
	}
	b.state.Seq = seq
	b.state.Collections = collections
	b.state.Error = ""
	b.settleLocked()
	return true
}

// Fail records a user-facing error if seq is still the latest issued.
// The previously displayed list is kept.
func (b *Board) Fail(seq uint64, message string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if seq != b.issued || b.closed {
		observability.RecordStaleResult()
		return false
	}

	b.state.Seq = seq
	b.state.Error = message
	b.settleLocked()
	return true
}

// settleLocked clears progress flags, wakes waiters and publishes the new
// state. Publishing under mu keeps subscribers in sequence order.
func (b *Board) settleLocked() {
	b.state.Loading = false
	b.state.Refreshing = false
	b.state.UpdatedAt = time.Now()

	close(b.settled)
	b.settled = make(chan struct{})

	snap := b.snapshotLocked()
	for _, ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Refresh runs one aggregation and returns the board once a run at or after
// it has settled. A call made while another run is in flight joins that run
// instead of starting a second one.
func (b *Board) Refresh(ctx context.Context, session *domain.Session, refreshing bool) Snapshot {
	seq, run := b.Launch(session, refreshing)
	if run != nil {
		run(ctx)
	}
	return b.Wait(ctx, seq)
}

// Launch issues a run and returns its sequence number with the function that
// performs it. When a run is already in flight, or the board is closed, run is
// nil and seq is the number to wait for.
func (b *Board) Launch(session *domain.Session, refreshing bool) (seq uint64, run func(context.Context)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return b.state.Seq, nil
	}
	if b.inFlightLocked() {
		if refreshing {
			b.state.Refreshing = true
		}
		return b.issued, nil
	}

	seq = b.beginLocked(refreshing)
	return seq, func(ctx context.Context) {
		collections, err := b.source.Aggregate(ctx, session)
		if err != nil {
			if !errors.Is(err, ErrAggregationFailed) {
				b.logger.Error("unexpected aggregation error", zap.Error(err))
			}
			b.Fail(seq, RefreshMessage)
			return
		}
		b.Apply(seq, collections)
	}
}

// Wait blocks until the board has settled a run numbered seq or later, the
// board is closed, or ctx is done, and returns the current snapshot.
func (b *Board) Wait(ctx context.Context, seq uint64) Snapshot {
	for {
		b.mu.Lock()
		if b.state.Seq >= seq || b.closed {
			snap := b.snapshotLocked()
			b.mu.Unlock()
			return snap
		}
		settled := b.settled
		b.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return b.Snapshot()
		}
	}
}

// Snapshot returns a copy of the current state.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Board) snapshotLocked() Snapshot {
	snap := b.state
	snap.Collections = make([]domain.EnrichedCollection, len(b.state.Collections))
	copy(snap.Collections, b.state.Collections)
	return snap
}

// Subscribe returns a channel receiving every applied change.
// Slow subscribers only see the latest snapshot. Call cancel to unsubscribe.
func (b *Board) Subscribe() (<-chan Snapshot, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Close detaches all subscribers and wakes waiters. Later results are discarded.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.settled)
	b.settled = make(chan struct{})
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Registry keeps one Board per session.
type Registry struct {
	source Source
	logger *zap.Logger

	mu     sync.Mutex
	boards map[string]*Board
}

// NewRegistry creates a Registry whose boards read from source.
func NewRegistry(source Source, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		source: source,
		logger: logger,
		boards: make(map[string]*Board),
	}
}

// Board returns the board for sessionID, creating it on first use.
func (r *Registry) Board(sessionID string) *Board {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.boards[sessionID]
	if !ok {
		b = NewBoard(r.source, r.logger.With(zap.String("session_id", sessionID)))
		r.boards[sessionID] = b
	}
	return b
}

// Drop closes and forgets the board for sessionID.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	b, ok := r.boards[sessionID]
	delete(r.boards, sessionID)
	r.mu.Unlock()

	if ok {
		b.Close()
	}
}

// IDs returns the session ids that currently hold a board.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.boards))
	for id := range r.boards {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of live boards.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}
