package store

import (
	"context"
	"sync"
)

//go:generate mockgen -source=slots.go -destination=mocks/slots.go -package=mocks

// Slots is the durable key/value contract behind a Store. Get reports
// ok=false for an absent key; Delete of an absent key is not an error.
type Slots interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type memorySlots struct {
	mu     sync.RWMutex
	values map[string]string
}

func (m *memorySlots) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *memorySlots) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memorySlots) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// NewMemorySlots returns slots that live as long as the process.
func NewMemorySlots() Slots {
	return &memorySlots{values: map[string]string{}}
}
