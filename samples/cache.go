package samples

import (
	"container/list"
	"errors"

	"github.com/ethereum-optimism/infra/op-testexec/assert"
	"github.com/ethereum-optimism/infra/op-testexec/discovery"
	"github.com/ethereum-optimism/infra/op-testexec/types"
)

// lru is a minimal least-recently-used cache exercised by CacheSuite.
type lru struct {
	cap   int
	order *list.List
	items map[string]*list.Element
}

type entry struct {
	key string
	val int
}

func newLRU(capacity int) *lru {
	return &lru{cap: capacity, order: list.New(), items: make(map[string]*list.Element)}
}

func (c *lru) Put(key string, val int) {
	if el, ok := c.items[key]; ok {
		el.Value.(*entry).val = val
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&entry{key: key, val: val})
	if c.order.Len() > c.cap {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
	}
}

func (c *lru) Get(key string) (int, bool) {
	el, ok := c.items[key]
	if !ok {
		return 0, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).val, true
}

func (c *lru) Len() int { return c.order.Len() }

// CacheSuite owns a cache for the lifetime of the suite instance and releases
// it when the instance is disposed.
type CacheSuite struct {
	cache  *lru
	closed bool
}

func NewCacheSuite() (*CacheSuite, error) {
	return &CacheSuite{cache: newLRU(2)}, nil
}

func (s *CacheSuite) Tags() map[string]discovery.Tags {
	return map[string]discovery.Tags{
		"Reset":        {PostAction: true},
		"TestPutGet":   {Description: "stores and reads a value", Groups: []string{"smoke", "cache"}},
		"TestEviction": {Description: "evicts the least recently used key", Groups: []string{"cache"}},
	}
}

func (s *CacheSuite) SetUp() {
	if s.closed {
		assert.AbortTest("cache suite used after close")
	}
}

func (s *CacheSuite) Reset() {
	s.cache = newLRU(2)
}

func (s *CacheSuite) TestPutGet() {
	s.cache.Put("a", 1)
	v, ok := s.cache.Get("a")
	assert.True(ok)
	assert.Equal(1, v)
}

func (s *CacheSuite) TestEviction(rc *types.RunContext) {
	s.cache.Put("a", 1)
	s.cache.Put("b", 2)
	s.cache.Get("a")
	s.cache.Put("c", 3)
	rc.Logf("cache holds %d entries", s.cache.Len())

	_, ok := s.cache.Get("b")
	assert.False(ok, "b should have been evicted")
	_, ok = s.cache.Get("a")
	assert.True(ok, "a was used recently and must stay")
}

func (s *CacheSuite) Close() error {
	if s.closed {
		return errors.New("cache suite closed twice")
	}
	s.closed = true
	s.cache = nil
	return nil
}
