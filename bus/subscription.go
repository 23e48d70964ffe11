package bus

import "sync/atomic"

// Callback is invoked with the payload published to an event type. An error
// return (or a panic, which the bus recovers) is treated as a subscriber
// failure: isolated from every other subscriber and republished as a
// system:error event.
type Callback func(payload any) error

// Subscription is the opaque capability handle returned by Subscribe. Its
// only powers are Unsubscribe and Active; callers cannot reach into the
// bus's subscriber table through it.
type Subscription struct {
	EventType string
	ID        string

	active   int32
	priority int
	once     bool
	async    bool
	seq      uint64
	callback Callback

	bus *EventBus
}

// Active reports whether this subscription is still registered.
func (s *Subscription) Active() bool {
	return atomic.LoadInt32(&s.active) == 1
}

// Unsubscribe removes this subscription from its bus. Idempotent: calling
// it more than once, or on an already-inactive subscription, is a no-op.
func (s *Subscription) Unsubscribe() {
	if !atomic.CompareAndSwapInt32(&s.active, 1, 0) {
		return
	}
	s.bus.remove(s)
}

func (s *Subscription) markInactive() bool {
	return atomic.CompareAndSwapInt32(&s.active, 1, 0)
}

// SubscribeOption configures a Subscribe call, following the functional
// options pattern used throughout this module (see workflow.Option).
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	priority int
	once     bool
	async    bool
}

// WithPriority sets the delivery priority (descending order; default 0).
func WithPriority(p int) SubscribeOption {
	return func(c *subscribeConfig) { c.priority = p }
}

// WithOnce marks the subscription for removal after its first invocation.
func WithOnce() SubscribeOption {
	return func(c *subscribeConfig) { c.once = true }
}

// WithAsync overrides the default (true) of whether this subscriber runs
// concurrently with its siblings during a single publish.
func WithAsync(async bool) SubscribeOption {
	return func(c *subscribeConfig) { c.async = async }
}
