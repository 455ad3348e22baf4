package bridge

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBusBuffer is the per-subscriber channel capacity
	DefaultBusBuffer = 256
	// DefaultSlowTimeout is how long a publish waits on a full subscriber
	// before dropping it
	DefaultSlowTimeout = 5 * time.Second
)

type subscriber struct {
	ch  chan Event
	ctx context.Context
}

// Bus fans events out to every subscriber in emission order. A send to a full
// subscriber waits until it reads, its context ends or the slow timeout
// passes. A subscriber that misses the timeout is closed, never skipped.
type Bus struct {
	mu          sync.RWMutex
	subs        map[uint64]*subscriber
	next        uint64
	buffer      int
	slowTimeout time.Duration
	closed      bool
	log         *zap.Logger
}

// NewBus creates a bus with the given per-subscriber buffer
func NewBus(buffer int, log *zap.Logger) *Bus {
	if buffer <= 0 {
		buffer = DefaultBusBuffer
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		subs:        make(map[uint64]*subscriber),
		buffer:      buffer,
		slowTimeout: DefaultSlowTimeout,
		log:         log,
	}
}

// SetSlowTimeout changes how long a publish waits on a full subscriber
func (b *Bus) SetSlowTimeout(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slowTimeout = d
}

// Subscribe registers a subscriber until ctx is done
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, nil
	}

	id := b.next
	b.next++
	b.subs[id] = &subscriber{ch: ch, ctx: ctx}

	go func() {
		<-ctx.Done()
		b.remove(id)
	}()

	return ch, nil
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish delivers an already encoded event
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	var slow []uint64
	for id, sub := range b.subs {
		if !b.send(sub, ev) {
			slow = append(slow, id)
		}
	}
	b.mu.RUnlock()

	for _, id := range slow {
		b.log.Warn("dropping slow subscriber", zap.Uint64("subscriber", id), zap.String("event", ev.Name))
		b.remove(id)
	}
}

// send reports false when sub stayed full for the whole slow timeout
func (b *Bus) send(sub *subscriber, ev Event) bool {
	select {
	case sub.ch <- ev:
		return true
	case <-sub.ctx.Done():
		return true
	default:
	}

	timer := time.NewTimer(b.slowTimeout)
	defer timer.Stop()
	select {
	case sub.ch <- ev:
		return true
	case <-sub.ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}

// Emit encodes payload and publishes it under name
func (b *Bus) Emit(name string, payload any) {
	ev, err := NewEvent(name, payload)
	if err != nil {
		b.log.Error("drop event", zap.String("event", name), zap.Error(err))
		return
	}
	b.Publish(ev)
}

// Subscribers returns the number of live subscribers
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription
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
