package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodispatch/pkg/model"
)

func item(id string, p model.Priority, at time.Time) *WorkItem {
	return &WorkItem{
		Request:    model.Request{Identity: id, Priority: p},
		EnqueuedAt: at,
	}
}

func TestQueueOrdering(t *testing.T) {
	q := newWorkQueue()
	now := time.Now()

	q.insert(item("low-first", model.PriorityLow, now))
	q.insert(item("high-later", model.PriorityHigh, now.Add(time.Second)))
	q.insert(item("medium", model.PriorityMedium, now.Add(2*time.Second)))

	// Higher priority runs first regardless of submission order.
	require.Equal(t, "high-later", q.pop().Request.Identity)
	require.Equal(t, "medium", q.pop().Request.Identity)
	require.Equal(t, "low-first", q.pop().Request.Identity)
	assert.Nil(t, q.pop())
}

func TestQueueEqualPriorityIsFIFO(t *testing.T) {
	// The two-key ordering is deliberately a total order: priority
	// descending, then submission time ascending. Ties on priority must
	// preserve submission order, deterministically.
	q := newWorkQueue()
	now := time.Now()

	for i, id := range []string{"a", "b", "c", "d"} {
		q.insert(item(id, model.PriorityMedium, now.Add(time.Duration(i)*time.Millisecond)))
	}

	for _, want := range []string{"a", "b", "c", "d"} {
		got := q.pop()
		require.NotNil(t, got)
		assert.Equal(t, want, got.Request.Identity)
	}
}

func TestQueueInsertReplacesSameIdentity(t *testing.T) {
	q := newWorkQueue()
	now := time.Now()

	first := item("req-1", model.PriorityHigh, now)
	first.Retries = 2
	q.insert(first)

	second := item("req-1", model.PriorityLow, now.Add(time.Second))
	q.insert(second)

	require.Equal(t, 1, q.len(), "same identity must never appear twice")

	got := q.pop()
	require.NotNil(t, got)
	assert.Equal(t, model.PriorityLow, got.Request.Priority, "replacement supersedes the old item")
	assert.Equal(t, 0, got.Retries, "retry count resets for the new submission")
}

func TestQueueRemoveMatching(t *testing.T) {
	q := newWorkQueue()
	now := time.Now()

	q.insert(item("a", model.PriorityLow, now))
	q.insert(item("b", model.PriorityLow, now.Add(time.Millisecond)))

	assert.True(t, q.removeMatching(ByIdentity("a")))
	assert.False(t, q.removeMatching(ByIdentity("a")), "second removal is a no-op")
	require.Equal(t, 1, q.len())
	assert.Equal(t, "b", q.pop().Request.Identity)
}

func TestQueueUpdateMatching(t *testing.T) {
	q := newWorkQueue()
	now := time.Now()

	stale := item("slow", model.PriorityLow, now)
	stale.Retries = 1
	q.insert(stale)
	q.insert(item("fresh", model.PriorityMedium, now.Add(time.Millisecond)))

	require.True(t, q.updateMatching(ByIdentity("slow"), model.PriorityHigh))

	got := q.pop()
	require.NotNil(t, got)
	assert.Equal(t, "slow", got.Request.Identity, "updated item must be reordered to the front")
	assert.Equal(t, model.PriorityHigh, got.Request.Priority)
	assert.Equal(t, 1, got.Retries, "retry count is preserved across priority updates")
	assert.True(t, got.EnqueuedAt.After(now), "timestamp is refreshed on update")
}

func TestQueueUpdateMatchingNoMatch(t *testing.T) {
	q := newWorkQueue()
	q.insert(item("a", model.PriorityLow, time.Now()))

	assert.False(t, q.updateMatching(ByIdentity("missing"), model.PriorityHigh))
	assert.Equal(t, 1, q.len())
}

func TestQueueClear(t *testing.T) {
	q := newWorkQueue()
	q.insert(item("a", model.PriorityLow, time.Now()))
	q.insert(item("b", model.PriorityHigh, time.Now()))

	q.clear()
	assert.Equal(t, 0, q.len())
	assert.Nil(t, q.pop())
}
