package tagihan

import (
	"sync"

	"github.com/google/uuid"
)

// Publisher fans DomainEvents out to in-process subscribers (the UI layer's
// replacement for change-feed polling). Publishing never blocks: a subscriber
// that falls behind loses events rather than stalling a transition.
type Publisher struct {
	mu     sync.RWMutex
	subs   map[int]chan DomainEvent
	nextID int
	buffer int
}

// NewPublisher constructs a Publisher with the given per-subscriber buffer.
func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 16
	}
	return &Publisher{subs: make(map[int]chan DomainEvent), buffer: buffer}
}

// Subscribe registers a listener. The returned cancel func must be called to
// release the channel.
func (p *Publisher) Subscribe() (<-chan DomainEvent, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	ch := make(chan DomainEvent, p.buffer)
	p.subs[id] = ch
	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if ch, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber that has buffer room.
func (p *Publisher) Publish(ev DomainEvent) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
