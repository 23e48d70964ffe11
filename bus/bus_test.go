package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublish_PriorityOrder(t *testing.T) {
	b := New()
	var mu sync.Mutex
	var order []int

	record := func(n int) Callback {
		return func(payload any) error {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			return nil
		}
	}

	b.Subscribe("tick", record(1), WithPriority(1), WithAsync(false))
	b.Subscribe("tick", record(3), WithPriority(10), WithAsync(false))
	b.Subscribe("tick", record(2), WithPriority(5), WithAsync(false))

	b.Publish(context.Background(), "tick", nil)

	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestPublish_OnceSubscriberRemovedAfterInvocation(t *testing.T) {
	b := New()
	var calls int32
	b.Subscribe("tick", func(payload any) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, WithOnce(), WithAsync(false))

	b.Publish(context.Background(), "tick", nil)
	b.Publish(context.Background(), "tick", nil)

	assert.Equal(t, int32(1), calls)
	assert.False(t, b.HasSubscribers("tick"))
}

func TestPublish_SubscriberFailureIsolated(t *testing.T) {
	b := New()
	var okCalled int32
	b.Subscribe("tick", func(payload any) error {
		panic("boom")
	}, WithAsync(false))
	b.Subscribe("tick", func(payload any) error {
		atomic.AddInt32(&okCalled, 1)
		return nil
	}, WithAsync(false))

	errEvents := make(chan any, 1)
	b.Subscribe(EventSystemError, func(payload any) error {
		errEvents <- payload
		return nil
	}, WithAsync(false))

	assert.NotPanics(t, func() {
		b.Publish(context.Background(), "tick", nil)
	})
	assert.Equal(t, int32(1), okCalled)

	select {
	case <-errEvents:
	case <-time.After(time.Second):
		t.Fatal("expected system:error republish")
	}
}

func TestPublish_ErrorSubscriberReentrancyGuarded(t *testing.T) {
	b := New()
	var errCalls int32
	b.Subscribe(EventSystemError, func(payload any) error {
		atomic.AddInt32(&errCalls, 1)
		return assertErr
	}, WithAsync(false))

	b.Publish(context.Background(), EventSystemError, nil)

	// The failing system:error subscriber itself fails; the reentrancy
	// guard must prevent the bus from republishing system:error forever.
	assert.Equal(t, int32(1), errCalls)
}

var assertErr = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

func TestUnsubscribe_Idempotent(t *testing.T) {
	b := New()
	sub := b.Subscribe("tick", func(payload any) error { return nil })
	sub.Unsubscribe()
	assert.False(t, sub.Active())
	assert.NotPanics(t, sub.Unsubscribe)
}

func TestClearAllSubscriptions(t *testing.T) {
	b := New()
	b.Subscribe("a", func(payload any) error { return nil })
	b.Subscribe("b", func(payload any) error { return nil })
	b.ClearAllSubscriptions()
	assert.False(t, b.HasSubscribers("a"))
	assert.False(t, b.HasSubscribers("b"))
}

func TestSubscribe_DuringDeliveryNotInvokedThisPublish(t *testing.T) {
	b := New()
	var secondCalled int32
	b.Subscribe("tick", func(payload any) error {
		b.Subscribe("tick", func(payload any) error {
			atomic.AddInt32(&secondCalled, 1)
			return nil
		}, WithAsync(false))
		return nil
	}, WithAsync(false))

	b.Publish(context.Background(), "tick", nil)
	assert.Equal(t, int32(0), secondCalled)

	b.Publish(context.Background(), "tick", nil)
	assert.Equal(t, int32(1), secondCalled)
}
