package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryCatalog is a map-backed Catalog for tests and local runs.
type MemoryCatalog struct {
	mu    sync.RWMutex
	items map[string]Item
}

func NewMemoryCatalog(items ...Item) *MemoryCatalog {
	c := &MemoryCatalog{items: make(map[string]Item)}
	for _, item := range items {
		c.items[item.ID] = item
	}
	return c
}

func (c *MemoryCatalog) ActiveItems(ctx context.Context) ([]Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Item
	for _, item := range c.items {
		if item.Active {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *MemoryCatalog) Item(ctx context.Context, id string) (Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

func (c *MemoryCatalog) Put(item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.ID] = item
}

func (c *MemoryCatalog) Upsert(ctx context.Context, item Item) error {
	c.Put(item)
	return nil
}

func (c *MemoryCatalog) SetActive(ctx context.Context, id string, active bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[id]
	if !ok {
		return ErrItemNotFound
	}
	item.Active = active
	c.items[id] = item
	return nil
}

func (c *MemoryCatalog) SetBasePrice(ctx context.Context, id string, base decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[id]
	if !ok {
		return ErrItemNotFound
	}
	item.BasePrice = base
	c.items[id] = item
	return nil
}
