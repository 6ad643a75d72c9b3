package domain

import "sync"

// Listener is notified after a store applies a state change.
// Listeners read the new state through the store's accessors.
type Listener func()

type subscription struct {
	id int
	fn Listener
}

// Broadcaster fans state-change notifications out to subscribers.
// The zero value is ready to use.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is a no-op.
func (b *Broadcaster) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Notify calls every listener in subscription order.
// It must not be called while holding the owning store's lock.
func (b *Broadcaster) Notify() {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn()
	}
}

// Len returns the number of active subscribers
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
