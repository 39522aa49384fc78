// Package relay rebroadcasts storageUpdated notifications to every attached
// surface as storageChanged. Delivery is fire-and-forget and at-most-once:
// there is no replay for late subscribers and a subscriber whose queue is
// full misses the notification.
package relay

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/models"
)

const (
	// DefaultBufferSize is the per-subscriber queue length.
	DefaultBufferSize = 32

	// DefaultHeartbeat keeps SSE connections alive through proxies.
	DefaultHeartbeat = 30 * time.Second
)

// Listener receives rebroadcast notifications on the subscriber's own
// goroutine, in publish order.
type Listener func(models.ChangeNotification)

// Options tunes a Relay. Zero values select the defaults.
type Options struct {
	BufferSize int
	Heartbeat  time.Duration
}

type subscriber struct {
	id   string
	ch   chan models.ChangeNotification
	done chan struct{}
	fn   Listener
}

// Relay is a process-wide notification fan-out.
type Relay struct {
	logger    *common.Logger
	bufSize   int
	heartbeat time.Duration

	mu     sync.RWMutex
	subs   map[string]*subscriber
	closed bool
	wg     sync.WaitGroup
}

// New creates a relay.
func New(logger *common.Logger, opts Options) *Relay {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	return &Relay{
		logger:    logger,
		bufSize:   opts.BufferSize,
		heartbeat: opts.Heartbeat,
		subs:      make(map[string]*subscriber),
	}
}

// Subscribe registers fn under id and returns the id used (a UUID when id is
// empty) and a function that removes the subscription. Subscribing an id
// that is already registered replaces the previous listener.
func (r *Relay) Subscribe(id string, fn Listener) (string, func()) {
	if id == "" {
		id = uuid.NewString()
	}
	s := &subscriber{
		id:   id,
		ch:   make(chan models.ChangeNotification, r.bufSize),
		done: make(chan struct{}),
		fn:   fn,
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return id, func() {}
	}
	if old, ok := r.subs[id]; ok {
		close(old.done)
	}
	r.subs[id] = s
	r.wg.Add(1)
	r.mu.Unlock()

	go r.deliver(s)

	r.logger.Debug().Str("subscriber", id).Msg("relay subscriber attached")
	return id, func() { r.remove(s) }
}

// Unsubscribe removes the subscriber registered under id, if any.
func (r *Relay) Unsubscribe(id string) {
	r.mu.RLock()
	s, ok := r.subs[id]
	r.mu.RUnlock()
	if ok {
		r.remove(s)
	}
}

func (r *Relay) remove(s *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.subs[s.id]; !ok || cur != s {
		return
	}
	delete(r.subs, s.id)
	close(s.done)
	r.logger.Debug().Str("subscriber", s.id).Msg("relay subscriber detached")
}

// Publish rebroadcasts a storageUpdated notification as storageChanged to
// every current subscriber. Other notification types are ignored. Publish
// never blocks.
func (r *Relay) Publish(n models.ChangeNotification) {
	if n.Type != models.StorageUpdated {
		return
	}
	out := n
	out.Type = models.StorageChanged

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	for _, s := range r.subs {
		select {
		case s.ch <- out:
		default:
			r.logger.Warn().
				Str("subscriber", s.id).
				Str("category", string(n.Category)).
				Str("key", n.Key).
				Msg("relay queue full, notification dropped")
		}
	}
}

// SubscriberCount returns the number of attached subscribers.
func (r *Relay) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Heartbeat returns the configured SSE heartbeat interval.
func (r *Relay) Heartbeat() time.Duration { return r.heartbeat }

// Close detaches every subscriber and waits for their goroutines to exit.
// Later publishes are ignored.
func (r *Relay) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for id, s := range r.subs {
		close(s.done)
		delete(r.subs, id)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Relay) deliver(s *subscriber) {
	defer r.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case n := <-s.ch:
			select {
			case <-s.done:
				return
			default:
			}
			r.call(s, n)
		}
	}
}

func (r *Relay) call(s *subscriber, n models.ChangeNotification) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Str("subscriber", s.id).
				Str("panic", fmt.Sprint(rec)).
				Msg("relay listener panicked")
		}
	}()
	s.fn(n)
}
