package emitter

import (
	"sync"
	"sync/atomic"

	"github.com/blackwell-systems/camwatch/internal/logging"
	"github.com/rs/zerolog"
)

// DefaultSubscriberBuffer is the channel size used when Subscribe gets 0.
const DefaultSubscriberBuffer = 64

type subscription struct {
	name string
	ch   chan Payload
}

// Bus fans payloads out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the payload and the drop is counted.
// Each subscriber receives payloads in publish order.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]*subscription
	next    int
	closed  bool
	dropped atomic.Uint64
	log     zerolog.Logger
}

// NewBus creates an empty bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
		log:  logging.WithComponent(log, "bus"),
	}
}

// Subscribe registers a subscriber and returns its channel and a cancel
// function that unregisters it and closes the channel.
func (b *Bus) Subscribe(name string, buffer int) (<-chan Payload, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Payload, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = &subscription{name: name, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish delivers p to every subscriber without blocking.
func (b *Bus) Publish(p Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case sub.ch <- p:
		default:
			b.dropped.Add(1)
			b.log.Warn().Str("subscriber", sub.name).Msg("subscriber buffer full, payload dropped")
		}
	}
}

// Dropped returns how many deliveries were dropped.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
