package local

import (
	"context"
	"sync"

	"github.com/Alturino/storefront/cart/pkg/response"
)

// MemoryCart keeps the serialized cart in process memory. It is the storage used when no
// redis or postgres is configured and the one tests drive.
type MemoryCart struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryCart() *MemoryCart {
	return &MemoryCart{}
}

func (m *MemoryCart) Load(_ context.Context) ([]response.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decode(m.data)
}

func (m *MemoryCart) Save(_ context.Context, items []response.LineItem) error {
	data, err := encode(items)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	return nil
}

func (m *MemoryCart) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}
