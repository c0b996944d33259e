package dispatch

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"geodispatch/pkg/model"
)

// Operation is the bound async action of a work item. It performs the
// lookup, with the cache write-back already wired in.
type Operation func(ctx context.Context) ([]model.Place, error)

// Callback delivers the final result or error to the submitter. It is
// invoked at most once per submission; cancellation and Stop drop it
// silently.
type Callback func(places []model.Place, err error)

// WorkItem is the unit tracked by the pending queue.
type WorkItem struct {
	Request    model.Request
	Run        Operation
	Done       Callback
	EnqueuedAt time.Time
	Retries    int
}

// Selector matches work items by their public fields.
type Selector func(item WorkItem) bool

// ByIdentity matches items whose request carries the given identity.
func ByIdentity(id string) Selector {
	return func(item WorkItem) bool {
		return item.Request.Identity == id
	}
}

// workQueue is the pending-work store: an ordered slice, fully resorted on
// every mutation that can change ranks. The store is expected to stay small,
// so the resort is cheaper than maintaining a heap.
//
// Not safe for concurrent use; the Dispatcher's mutex guards it.
type workQueue struct {
	items  []*WorkItem
	logger *slog.Logger
}

func newWorkQueue() *workQueue {
	return &workQueue{
		logger: slog.With("component", "work_queue"),
	}
}

// insert adds an item, superseding any pending item with the same identity.
// The replaced item's callback is never invoked.
func (q *workQueue) insert(item *WorkItem) {
	if q.removeMatching(ByIdentity(item.Request.Identity)) {
		q.logger.Debug("Replaced pending request", "identity", item.Request.Identity)
	}
	q.items = append(q.items, item)
	q.resort()
}

// resort orders items by priority descending, then enqueue time ascending.
func (q *workQueue) resort() {
	sort.SliceStable(q.items, func(i, j int) bool {
		a, b := q.items[i], q.items[j]
		if a.Request.Priority != b.Request.Priority {
			return a.Request.Priority > b.Request.Priority
		}
		return a.EnqueuedAt.Before(b.EnqueuedAt)
	})
}

// removeMatching removes the first item satisfying sel. It reports whether
// an item was removed.
func (q *workQueue) removeMatching(sel Selector) bool {
	for i, item := range q.items {
		if sel(*item) {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// updateMatching replaces the first matching item with a copy carrying the
// new priority and a refreshed timestamp. Retry count, operation and
// callback are preserved. It reports whether a match was found.
func (q *workQueue) updateMatching(sel Selector, p model.Priority) bool {
	for i, item := range q.items {
		if sel(*item) {
			updated := *item
			updated.Request = item.Request.WithPriority(p)
			updated.EnqueuedAt = time.Now()
			q.items[i] = &updated
			q.resort()
			return true
		}
	}
	return false
}

// pop removes and returns the next-to-run item, or nil if the queue is
// empty.
func (q *workQueue) pop() *WorkItem {
	if len(q.items) == 0 {
		return nil
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item
}

func (q *workQueue) len() int {
	return len(q.items)
}

func (q *workQueue) clear() {
	q.items = nil
}
