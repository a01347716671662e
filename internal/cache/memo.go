// Package cache memoizes the one expensive source fetch behind a single
// time-bounded slot.
package cache

import (
	"context"
	"sync"
	"time"
)

// Memo holds at most one value. The value is reused until the policy's
// expiry passes, then the next Get refills it. Failed fills are not stored.
type Memo[T any] struct {
	mu        sync.Mutex
	policy    ExpiryPolicy
	now       func() time.Time
	value     T
	filled    bool
	expiresAt time.Time
}

// Option configures a Memo.
type Option func(*memoOptions)

type memoOptions struct {
	now func() time.Time
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *memoOptions) { o.now = now }
}

// NewMemo returns an empty memo governed by policy.
func NewMemo[T any](policy ExpiryPolicy, opts ...Option) *Memo[T] {
	o := memoOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Memo[T]{policy: policy, now: o.now}
}

// Get returns the cached value, calling fill when the slot is empty or
// expired. hit reports whether the cached value was reused.
func (m *Memo[T]) Get(ctx context.Context, fill func(context.Context) (T, error)) (value T, hit bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.filled && now.Before(m.expiresAt) {
		return m.value, true, nil
	}

	v, err := fill(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}

	m.value = v
	m.filled = true
	m.expiresAt = m.policy.Expiry(now)
	return v, false, nil
}

// Invalidate empties the slot so the next Get refills it.
func (m *Memo[T]) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	m.value = zero
	m.filled = false
	m.expiresAt = time.Time{}
}

// ExpiresAt reports when the current value expires; ok is false when empty.
func (m *Memo[T]) ExpiresAt() (t time.Time, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiresAt, m.filled
}
