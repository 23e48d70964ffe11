// Package bus implements the process-wide event bus: a mapping from event
// type to a set of prioritized, optionally one-shot, failure-isolated
// subscribers.
package bus

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
)

// EventBus owns its subscription table exclusively. Construct with New for
// an isolated bus (tests, per-component injection) or use Default for the
// process-wide singleton.
type EventBus struct {
	mu   sync.RWMutex
	subs map[string][]*Subscription
	seq  uint64
}

// New returns an isolated, empty EventBus.
func New() *EventBus {
	return &EventBus{subs: make(map[string][]*Subscription)}
}

var defaultBus = New()

// Default returns the process-wide default EventBus singleton.
func Default() *EventBus { return defaultBus }

// Subscribe registers cb for eventType and returns a handle that can later
// unsubscribe it. A subscription registered during delivery of an event
// does not receive that in-flight publish (Publish snapshots subscribers
// before invoking any of them).
func (b *EventBus) Subscribe(eventType string, cb Callback, opts ...SubscribeOption) *Subscription {
	cfg := subscribeConfig{async: true}
	for _, o := range opts {
		o(&cfg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	sub := &Subscription{
		EventType: eventType,
		ID:        fmt.Sprintf("sub-%d", b.seq),
		active:    1,
		priority:  cfg.priority,
		once:      cfg.once,
		async:     cfg.async,
		seq:       b.seq,
		callback:  cb,
		bus:       b,
	}
	b.subs[eventType] = append(b.subs[eventType], sub)
	return sub
}

// remove deletes sub from its event type's slice. Called by
// Subscription.Unsubscribe and, for once-subscribers, after delivery.
func (b *EventBus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[sub.EventType]
	for i, s := range list {
		if s == sub {
			b.subs[sub.EventType] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// snapshot returns subscribers for eventType sorted by descending priority,
// ties broken by insertion order, at the moment of the call.
func (b *EventBus) snapshot(eventType string) []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	src := b.subs[eventType]
	out := make([]*Subscription, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority > out[j].priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Publish invokes every subscriber currently registered for eventType with
// payload, then returns once all of them have settled (fan-out + join).
// Subscriber failures (a returned error or a recovered panic) never abort
// other subscribers and never propagate to the caller; they are logged and
// republished as a system:error event, with a reentrancy guard so a failing
// system:error subscriber cannot recurse forever.
func (b *EventBus) Publish(ctx context.Context, eventType string, payload any) {
	subs := b.snapshot(eventType)
	if len(subs) == 0 {
		return
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures []subscriberFailure

	invoke := func(s *Subscription) {
		defer func() {
			if r := recover(); r != nil {
				mu.Lock()
				failures = append(failures, subscriberFailure{sub: s, err: fmt.Errorf("panic: %v", r)})
				mu.Unlock()
			}
		}()
		if err := s.callback(payload); err != nil {
			mu.Lock()
			failures = append(failures, subscriberFailure{sub: s, err: err})
			mu.Unlock()
		}
	}

	for _, s := range subs {
		if s.once {
			if s.markInactive() {
				b.remove(s)
			} else {
				// Already unsubscribed concurrently; skip delivery.
				continue
			}
		}
		if s.async {
			wg.Add(1)
			go func(s *Subscription) {
				defer wg.Done()
				invoke(s)
			}(s)
		} else {
			invoke(s)
		}
	}
	wg.Wait()

	for _, f := range failures {
		b.reportSubscriberFailure(ctx, eventType, f)
	}
}

type subscriberFailure struct {
	sub *Subscription
	err error
}

// reportSubscriberFailure logs a subscriber failure and republishes it as
// system:error. A failure during a system:error delivery itself is logged
// but not republished, so a failing system:error subscriber cannot recurse
// forever.
func (b *EventBus) reportSubscriberFailure(ctx context.Context, eventType string, f subscriberFailure) {
	log.Printf("bus: subscriber %s for %q failed: %v", f.sub.ID, eventType, f.err)
	if eventType == EventSystemError {
		return
	}
	b.Publish(ctx, EventSystemError, map[string]any{
		"sourceEventType": eventType,
		"subscriptionID":  f.sub.ID,
		"error":           f.err.Error(),
	})
}

// Unsubscribe removes sub. Equivalent to sub.Unsubscribe(); provided to
// match the unsubscribe(handle) call shape for callers that only
// hold the bus, not the subscription.
func (b *EventBus) Unsubscribe(sub *Subscription) {
	sub.Unsubscribe()
}

// HasSubscribers reports whether eventType currently has at least one
// active subscriber.
func (b *EventBus) HasSubscribers(eventType string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType]) > 0
}

// SubscriberCount returns the number of active subscribers for eventType.
func (b *EventBus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType])
}

// ClearEventSubscriptions removes every subscriber for eventType.
func (b *EventBus) ClearEventSubscriptions(eventType string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs[eventType] {
		s.markInactive()
	}
	delete(b.subs, eventType)
}

// ClearAllSubscriptions removes every subscriber for every event type.
func (b *EventBus) ClearAllSubscriptions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, list := range b.subs {
		for _, s := range list {
			s.markInactive()
		}
	}
	b.subs = make(map[string][]*Subscription)
}
