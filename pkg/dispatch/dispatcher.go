package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"geodispatch/pkg/cache"
	"geodispatch/pkg/geo"
	"geodispatch/pkg/model"
)

// ErrMaxRetries is delivered to the callback once a request has exhausted
// its retry budget. It is the only error the dispatcher itself originates;
// everything else comes from the lookup.
var ErrMaxRetries = errors.New("max retries exceeded")

// LookupFunc resolves coordinates to place annotations. It is expected to
// be slow and fallible; the dispatcher invokes it off its own control path
// and retries failures up to the configured ceiling.
type LookupFunc func(ctx context.Context, lat, lon float64) ([]model.Place, error)

// FingerprintFunc maps coordinates to a stable cache key.
type FingerprintFunc func(lat, lon float64) string

const (
	defaultHeartbeat  = 3 * time.Second
	defaultMaxRetries = 3
	defaultPrecision  = 6
)

// Config holds dispatcher construction parameters. Both Heartbeat and
// MaxRetries are fixed for the dispatcher's lifetime.
type Config struct {
	Heartbeat   time.Duration
	MaxRetries  int
	Fingerprint FingerprintFunc
}

// Dispatcher accepts lookup requests, deduplicates them by identity, orders
// them by priority and submission time, and executes them against the
// lookup on a heartbeat, caching successful non-empty results.
//
// A single mutex guards the pending queue and the result cache jointly:
// the two are always mutated as one logical step (e.g. a cache write-back
// belongs to the same step as finishing the in-flight item).
type Dispatcher struct {
	mu      sync.RWMutex
	pending *workQueue
	cache   cache.Cacher
	lookup  LookupFunc

	fingerprint FingerprintFunc
	heartbeat   time.Duration
	maxRetries  int

	logger *slog.Logger

	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a dispatcher. Zero config fields fall back to defaults
// (3s heartbeat, 3 retries, geohash fingerprint).
func New(cfg Config, lookup LookupFunc, store cache.Cacher) *Dispatcher {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Fingerprint == nil {
		cfg.Fingerprint = func(lat, lon float64) string {
			return geo.Geohash(lat, lon, defaultPrecision)
		}
	}

	return &Dispatcher{
		pending:     newWorkQueue(),
		cache:       store,
		lookup:      lookup,
		fingerprint: cfg.Fingerprint,
		heartbeat:   cfg.Heartbeat,
		maxRetries:  cfg.MaxRetries,
		logger:      slog.With("component", "dispatcher"),
	}
}

// Enqueue submits a request. On a cache hit the callback is invoked
// synchronously with the cached result and the request never enters the
// pending queue. Otherwise the request supersedes any pending item with the
// same identity.
func (d *Dispatcher) Enqueue(req model.Request, done Callback) {
	fp := d.fingerprint(req.Lat, req.Lon)

	d.mu.RLock()
	places, hit := d.cache.Get(fp)
	d.mu.RUnlock()
	if hit {
		d.logger.Debug("Cache hit on enqueue", "identity", req.Identity, "fingerprint", fp)
		done(places, nil)
		return
	}

	// Bind the lookup together with the cache write-back. Empty results are
	// not cached: nothing was learned.
	op := func(ctx context.Context) ([]model.Place, error) {
		found, err := d.lookup(ctx, req.Lat, req.Lon)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			d.mu.Lock()
			d.cache.Set(fp, found)
			d.mu.Unlock()
		}
		return found, nil
	}

	d.mu.Lock()
	d.pending.insert(&WorkItem{
		Request:    req,
		Run:        op,
		Done:       done,
		EnqueuedAt: time.Now(),
	})
	d.mu.Unlock()

	d.logger.Debug("Enqueued request", "identity", req.Identity, "priority", req.Priority.String(), "fingerprint", fp)
}

// UpdatePriority reprioritizes the first pending item matching sel. It
// reports whether a match was found.
func (d *Dispatcher) UpdatePriority(sel Selector, p model.Priority) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending.updateMatching(sel, p)
}

// Cancel removes the first pending item matching sel. The item's callback
// is never invoked: cancellation is a silent drop. An item whose lookup is
// already in flight cannot be canceled.
func (d *Dispatcher) Cancel(sel Selector) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending.removeMatching(sel)
}

// Pending returns the number of queued items.
func (d *Dispatcher) Pending() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pending.len()
}

// Start activates the heartbeat. Calling Start on a running dispatcher is a
// no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.running = true
	d.mu.Unlock()

	d.wg.Add(1)
	go d.loop(ctx)

	d.logger.Info("Dispatcher started", "heartbeat", d.heartbeat, "max_retries", d.maxRetries)
}

// Stop deactivates the heartbeat, clears all pending work and flushes the
// cache. Dropped items never see their callbacks invoked. Lookups already
// in flight are not interrupted.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	d.wg.Wait()

	d.mu.Lock()
	dropped := d.pending.len()
	d.pending.clear()
	d.cache.Flush()
	d.mu.Unlock()

	d.logger.Info("Dispatcher stopped", "dropped", dropped)
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

// drain processes ready work on one heartbeat. Cache hits resolve in a
// tight loop; the first cache miss either dispatches a worker or delivers
// the terminal retry error, and ends the round either way.
func (d *Dispatcher) drain(ctx context.Context) {
	for {
		d.mu.Lock()
		item := d.pending.pop()
		if item == nil {
			d.mu.Unlock()
			return
		}

		fp := d.fingerprint(item.Request.Lat, item.Request.Lon)
		if places, hit := d.cache.Get(fp); hit {
			d.mu.Unlock()
			d.logger.Debug("Cache hit on drain", "identity", item.Request.Identity, "fingerprint", fp)
			item.Done(places, nil)
			continue
		}

		if item.Retries >= d.maxRetries {
			d.mu.Unlock()
			d.logger.Warn("Retry ceiling reached", "identity", item.Request.Identity, "retries", item.Retries)
			item.Done(nil, ErrMaxRetries)
			return
		}
		d.mu.Unlock()

		// The lookup runs outside the exclusive section so a slow call never
		// stalls the heartbeat or other callers.
		go d.execute(ctx, item)
		return
	}
}

// execute runs the item's bound operation and either delivers the result or
// re-queues the item for the next heartbeat with an incremented retry
// count. The original submission time is kept, so a failing item does not
// leapfrog later submissions of equal priority.
func (d *Dispatcher) execute(ctx context.Context, item *WorkItem) {
	places, err := item.Run(ctx)
	if err != nil {
		d.logger.Warn("Lookup failed",
			"identity", item.Request.Identity,
			"attempt", item.Retries+1,
			"error", err)

		d.mu.Lock()
		if d.running {
			retry := *item
			retry.Retries++
			d.pending.insert(&retry)
		}
		d.mu.Unlock()
		return
	}

	item.Done(places, nil)
}
