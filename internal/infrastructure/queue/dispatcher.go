package queue

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/botforge/storefront-admin/internal/core/domain"
	"github.com/botforge/storefront-admin/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher delivers session changes to subscribers on a fixed set of
// workers. Changes are sharded by client id, so every subscriber sees the
// changes of one client in publish order.
type Dispatcher struct {
	workers []chan domain.SessionChange
	log     zerolog.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]func(domain.SessionChange)
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.SessionChange, numWorkers),
		log:     log,
		subs:    make(map[int]func(domain.SessionChange)),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.SessionChange, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Publish queues change on the worker owning its client id. It never
// blocks: when that worker's buffer is full the change is dropped and logged.
func (d *Dispatcher) Publish(change domain.SessionChange) {
	select {
	case d.workers[d.shardIndex(change.ClientID)] <- change:
	default:
		metrics.SessionChangesDroppedTotal.Inc()
		d.log.Warn().
			Str("client_id", change.ClientID).
			Str("reason", string(change.Reason)).
			Msg("session change dropped: worker queue full")
	}
}

// Subscribe registers fn and returns a function that removes it.
func (d *Dispatcher) Subscribe(fn func(domain.SessionChange)) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.subs[id] = fn
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subs, id)
			d.mu.Unlock()
		})
	}
}

// shardIndex maps a client id deterministically to a worker index.
func (d *Dispatcher) shardIndex(clientID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(clientID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.SessionChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			metrics.SessionChangesTotal.WithLabelValues(string(change.Reason)).Inc()
			d.deliver(id, change)
		}
	}
}

func (d *Dispatcher) deliver(workerID int, change domain.SessionChange) {
	d.mu.RLock()
	fns := make([]func(domain.SessionChange), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.mu.RUnlock()

	for _, fn := range fns {
		d.call(workerID, fn, change)
	}
}

// call isolates subscribers from each other: a panicking subscriber is
// logged and the remaining ones still run.
func (d *Dispatcher) call(workerID int, fn func(domain.SessionChange), change domain.SessionChange) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Interface("panic", r).
				Str("client_id", change.ClientID).
				Int("worker_id", workerID).
				Msg("session change subscriber panicked")
		}
	}()
	fn(change)
}
