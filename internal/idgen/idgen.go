package idgen

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// CounterStore persists the last-issued emergency id. IncrementCounter
// must be durable before it returns: a successful call means the new
// value survives a process restart.
type CounterStore interface {
	GetCounter(key string) (int64, error)
	IncrementCounter(key string) (int64, error)
}

// Allocator issues the per-device emergency sequence. Allocation is
// serialized so two overlapping calls never observe the same prior value,
// and a failed persist never hands out an id.
type Allocator struct {
	store  CounterStore
	key    string
	mutex  sync.Mutex
	logger *logrus.Entry
}

// NewAllocator creates an allocator backed by the given store
func NewAllocator(store CounterStore, key string, logger *logrus.Entry) *Allocator {
	return &Allocator{
		store:  store,
		key:    key,
		logger: logger,
	}
}

// Next allocates the next emergency id. The store increment is atomic, so
// a failure leaves the persisted counter at its prior value and a retried
// call does not skip numbers.
func (a *Allocator) Next() (int64, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	id, err := a.store.IncrementCounter(a.key)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate emergency id: %w", err)
	}

	a.logger.WithField("emergency_id", id).Debug("Allocated emergency id")
	return id, nil
}

// Current returns the last-issued emergency id without allocating
func (a *Allocator) Current() (int64, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	value, err := a.store.GetCounter(a.key)
	if err != nil {
		return 0, fmt.Errorf("failed to read emergency counter: %w", err)
	}
	return value, nil
}
