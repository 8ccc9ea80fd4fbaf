package cache

import (
	"container/list"
	"sync"

	"github.com/pkg/errors"
)

// Cache is a weight-bounded LRU cache. Each item carries a caller-assigned
// weight, and the least recently used items are evicted once the total
// weight exceeds the budget.
type Cache interface {
	// GetWeight gets the current total weight of items in the cache
	GetWeight() int

	// GetBudget gets the weight budget of the cache
	GetBudget() int

	// Insert adds a new item. Inserting an existing key is an error.
	Insert(key string, value interface{}, weight int) error

	// Retrieve fetches an item by key, marking it as recently used
	Retrieve(key string) (interface{}, bool)

	// Clear removes all items from the cache
	Clear()
}

type cacheItem struct {
	key    string
	value  interface{}
	weight int
}

type cache struct {
	mu sync.Mutex

	// Front of the list is the most recently used item
	order  *list.List
	lookup map[string]*list.Element

	weight int
	budget int
}

// NewCache returns a new cache with the given weight budget.
func NewCache(budget int) Cache {
	return &cache{
		order:  list.New(),
		lookup: make(map[string]*list.Element),
		budget: budget,
	}
}

func (c *cache) GetWeight() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.weight
}

func (c *cache) GetBudget() int {
	return c.budget
}

func (c *cache) Insert(key string, value interface{}, weight int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lookup[key]; ok {
		return errors.New("key already exists in cache")
	}

	c.lookup[key] = c.order.PushFront(&cacheItem{
		key:    key,
		value:  value,
		weight: weight,
	})
	c.weight += weight

	for c.weight > c.budget && c.order.Len() > 0 {
		evicted := c.order.Remove(c.order.Back()).(*cacheItem)
		c.weight -= evicted.weight
		delete(c.lookup, evicted.key)
	}

	return nil
}

func (c *cache) Retrieve(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.lookup[key]
	if !ok {
		return nil, false
	}

	c.order.MoveToFront(element)

	return element.Value.(*cacheItem).value, true
}

func (c *cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.lookup = make(map[string]*list.Element)
	c.weight = 0
}
