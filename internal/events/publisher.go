// Package events fans out tier change notifications to in-process
// subscribers.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dmarkhas/loyaltycore/internal/domain/model"
)

// TierChangeEvent is emitted after a tier transition committed.
type TierChangeEvent struct {
	MemberID  string
	OldTierID string
	NewTierID string
	Reason    model.TierChangeReason
	ChangedAt time.Time
}

// Subscriber receives published events on the dispatch goroutine. A slow
// subscriber delays the others, not the publishers.
type Subscriber func(TierChangeEvent)

const bufferSize = 256

// Publisher decouples tier transitions from their consumers. Publish never
// blocks: when the buffer is full the event is dropped and logged.
type Publisher struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs []Subscriber

	events chan TierChangeEvent
	stop   chan struct{}
	done   chan struct{}
}

// NewPublisher constructs a publisher with a logging subscriber attached.
func NewPublisher(logger *slog.Logger) *Publisher {
	p := &Publisher{
		logger: logger,
		events: make(chan TierChangeEvent, bufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	p.Subscribe(func(ev TierChangeEvent) {
		logger.Info("tier changed",
			"member_id", ev.MemberID,
			"old_tier", ev.OldTierID,
			"new_tier", ev.NewTierID,
			"reason", ev.Reason,
		)
	})
	return p
}

// Subscribe registers a subscriber. Safe to call before or after Start.
func (p *Publisher) Subscribe(fn Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
}

// Publish enqueues an event for dispatch.
func (p *Publisher) Publish(ev TierChangeEvent) {
	select {
	case p.events <- ev:
	default:
		p.logger.Warn("event buffer full, dropping tier change event", "member_id", ev.MemberID)
	}
}

// Start launches the dispatch goroutine.
func (p *Publisher) Start() {
	go p.dispatch()
}

// Stop drains buffered events and waits for dispatch to finish.
func (p *Publisher) Stop() {
	close(p.stop)
	<-p.done
}

func (p *Publisher) dispatch() {
	defer close(p.done)
	for {
		select {
		case ev := <-p.events:
			p.deliver(ev)
		case <-p.stop:
			for {
				select {
				case ev := <-p.events:
					p.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) deliver(ev TierChangeEvent) {
	p.mu.Lock()
	subs := make([]Subscriber, len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}
