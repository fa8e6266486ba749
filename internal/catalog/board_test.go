package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nft-storefront/internal/domain"
)

// scriptedSource returns queued results, optionally waiting on a gate first.
type scriptedSource struct {
	results chan scriptedResult
}

type scriptedResult struct {
	gate        chan struct{}
	collections []domain.EnrichedCollection
	err         error
}

func newScriptedSource(results ...scriptedResult) *scriptedSource {
	s := &scriptedSource{results: make(chan scriptedResult, len(results))}
	for _, r := range results {
		s.results <- r
	}
	return s
}

func (s *scriptedSource) Aggregate(ctx context.Context, _ *domain.Session) ([]domain.EnrichedCollection, error) {
	r := <-s.results
	if r.gate != nil {
		<-r.gate
	}
	return r.collections, r.err
}

func list(idList ...string) []domain.EnrichedCollection {
	out := make([]domain.EnrichedCollection, len(idList))
	for i, id := range idList {
		out[i] = domain.Plain(domain.CollectionDescriptor{ID: id, ContractAddress: "c-" + id})
	}
	return out
}

func TestBoard_InitialState(t *testing.T) {
	b := NewBoard(newScriptedSource(), nil)

	snap := b.Snapshot()
	assert.True(t, snap.Loading)
	assert.False(t, snap.Refreshing)
	assert.Empty(t, snap.Collections)
	assert.NotNil(t, snap.Collections)
}

func TestBoard_RefreshApplies(t *testing.T) {
	b := NewBoard(newScriptedSource(scriptedResult{collections: list("a", "b")}), nil)

	snap := b.Refresh(context.Background(), connected, false)

	assert.Equal(t, uint64(1), snap.Seq)
	assert.Equal(t, []string{"a", "b"}, ids(snap.Collections))
	assert.False(t, snap.Loading)
	assert.False(t, snap.Refreshing)
	assert.Empty(t, snap.Error)
}

func TestBoard_StaleResultDiscarded(t *testing.T) {
	slowGate := make(chan struct{})
	source := newScriptedSource(scriptedResult{gate: slowGate, collections: list("old")})
	b := NewBoard(source, nil)

	done := make(chan Snapshot)
	go func() {
		done <- b.Refresh(context.Background(), connected, true)
	}()

	// Wait until the refresh is blocked inside the aggregation.
	require.Eventually(t, func() bool {
		return len(source.results) == 0
	}, time.Second, time.Millisecond)

	newer := b.Begin(true)
	require.True(t, b.Apply(newer, list("new")))

	close(slowGate)
	first := <-done

	assert.Equal(t, []string{"new"}, ids(first.Collections))
	assert.Equal(t, newer, b.Snapshot().Seq)
}

func TestBoard_RefreshJoinsInFlightRun(t *testing.T) {
	gate := make(chan struct{})
	// A single queued result: a second aggregation would block forever.
	source := newScriptedSource(scriptedResult{gate: gate, collections: list("a", "b")})
	b := NewBoard(source, nil)

	results := make(chan Snapshot, 2)
	go func() { results <- b.Refresh(context.Background(), connected, false) }()
	require.Eventually(t, b.InFlight, time.Second, time.Millisecond)

	go func() { results <- b.Refresh(context.Background(), connected, true) }()
	require.Eventually(t, func() bool { return b.Snapshot().Refreshing }, time.Second, time.Millisecond)

	close(gate)
	for range 2 {
		select {
		case snap := <-results:
			assert.Equal(t, []string{"a", "b"}, ids(snap.Collections))
			assert.Equal(t, uint64(1), snap.Seq)
			assert.False(t, snap.Loading)
		case <-time.After(time.Second):
			t.Fatal("refresh did not return")
		}
	}
	assert.False(t, b.InFlight())
}

func TestBoard_WaitStopsOnContextAndClose(t *testing.T) {
	b := NewBoard(newScriptedSource(), nil)
	seq := b.Begin(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	snap := b.Wait(ctx, seq)
	assert.True(t, snap.Loading)

	done := make(chan Snapshot)
	go func() { done <- b.Wait(context.Background(), seq) }()
	b.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Close")
	}
}

func TestBoard_SubscriberEndsOnLatestSnapshot(t *testing.T) {
	for i := 0; i < 500; i++ {
		b := NewBoard(newScriptedSource(), nil)
		ch, cancel := b.Subscribe()

		older := b.Begin(false)
		go b.Apply(older, list("old"))
		for b.Snapshot().Seq != older {
			time.Sleep(time.Microsecond)
		}

		newer := b.Begin(false)
		require.True(t, b.Apply(newer, list("new")))

		snap := <-ch
		require.Equal(t, []string{"new"}, ids(snap.Collections), "iteration %d", i)
		cancel()
	}
}

func TestBoard_FailureKeepsPreviousList(t *testing.T) {
	source := newScriptedSource(
		scriptedResult{collections: list("a")},
		scriptedResult{err: fmt.Errorf("%w: boom", ErrAggregationFailed)},
	)
	b := NewBoard(source, nil)

	b.Refresh(context.Background(), connected, false)
	snap := b.Refresh(context.Background(), connected, true)

	assert.Equal(t, RefreshMessage, snap.Error)
	assert.Equal(t, []string{"a"}, ids(snap.Collections))
	assert.False(t, snap.Refreshing)
}

func TestBoard_SuccessClearsError(t *testing.T) {
	source := newScriptedSource(
		scriptedResult{err: errors.New("defect")},
		scriptedResult{collections: list("a")},
	)
	b := NewBoard(source, nil)

	assert.Equal(t, RefreshMessage, b.Refresh(context.Background(), connected, false).Error)
	assert.Empty(t, b.Refresh(context.Background(), connected, true).Error)
}

func TestBoard_ApplyAndFailRejectStaleSeq(t *testing.T) {
	b := NewBoard(newScriptedSource(), nil)

	first := b.Begin(false)
	second := b.Begin(true)

	assert.False(t, b.Apply(first, list("stale")))
	assert.False(t, b.Fail(first, "stale"))
	assert.True(t, b.Snapshot().Refreshing)

	assert.True(t, b.Apply(second, list("fresh")))
	assert.Equal(t, []string{"fresh"}, ids(b.Snapshot().Collections))
}

func TestBoard_SnapshotIsCopy(t *testing.T) {
	b := NewBoard(newScriptedSource(), nil)
	b.Apply(b.Begin(false), list("a"))

	snap := b.Snapshot()
	snap.Collections[0].ID = "mutated"

	assert.Equal(t, "a", b.Snapshot().Collections[0].ID)
}

func TestBoard_Subscribe(t *testing.T) {
	b := NewBoard(newScriptedSource(), nil)
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Apply(b.Begin(false), list("a"))
	b.Apply(b.Begin(false), list("a", "b"))

	// Only the latest snapshot is buffered.
	select {
	case snap := <-ch:
		assert.Equal(t, []string{"a", "b"}, ids(snap.Collections))
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}
}

func TestBoard_CloseDetachesSubscribers(t *testing.T) {
	b := NewBoard(newScriptedSource(), nil)
	ch, cancel := b.Subscribe()

	b.Close()
	_, ok := <-ch
	assert.False(t, ok)
	cancel()

	assert.False(t, b.Apply(b.Begin(false), list("late")))

	late, _ := b.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestRegistry_BoardPerSession(t *testing.T) {
	r := NewRegistry(newScriptedSource(), nil)

	a := r.Board("s1")
	assert.Same(t, a, r.Board("s1"))
	assert.NotSame(t, a, r.Board("s2"))
	assert.Equal(t, 2, r.Len())

	assert.ElementsMatch(t, []string{"s1", "s2"}, r.IDs())

	r.Drop("s1")
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"s2"}, r.IDs())
	assert.NotSame(t, a, r.Board("s1"))
}

func TestBoard_LaunchJoinsInFlight(t *testing.T) {
	b := NewBoard(newScriptedSource(scriptedResult{collections: list("a")}), nil)

	seq, run := b.Launch(connected, false)
	require.NotNil(t, run)
	assert.True(t, b.InFlight())

	joined, again := b.Launch(connected, true)
	assert.Nil(t, again)
	assert.Equal(t, seq, joined)
	assert.True(t, b.Snapshot().Refreshing)

	run(context.Background())
	snap := b.Wait(context.Background(), joined)
	assert.Equal(t, []string{"a"}, ids(snap.Collections))
	assert.False(t, snap.Refreshing)

	b.Close()
	_, run = b.Launch(connected, false)
	assert.Nil(t, run)
}
