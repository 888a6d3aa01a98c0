package runner

import (
	"cmp"
	"slices"
	"sync"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

type actionList struct {
	mu     sync.Mutex
	byType map[string][]*types.MethodDescriptor
	match  func(*types.MethodDescriptor) bool
}

func (l *actionList) get(t *types.TypeDescriptor) []*types.MethodDescriptor {
	if t == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if actions, ok := l.byType[t.FullName]; ok {
		return actions
	}
	var actions []*types.MethodDescriptor
	for _, m := range t.Methods {
		if m == nil || m.IsTest || !l.match(m) {
			continue
		}
		if len(m.Params) > 0 && !m.TakesRunContext() {
			continue
		}
		actions = append(actions, m)
	}
	// Equal orders have no defined relative order.
	slices.SortFunc(actions, func(a, b *types.MethodDescriptor) int {
		return cmp.Compare(a.ActionOrder, b.ActionOrder)
	})
	l.byType[t.FullName] = actions
	return actions
}

// ActionCache memoizes the pre- and post-test actions of each type. The two
// lists are guarded independently and discovered at most once per type.
type ActionCache struct {
	pre  actionList
	post actionList
}

// NewActionCache returns an empty cache.
func NewActionCache() *ActionCache {
	return &ActionCache{
		pre: actionList{
			byType: make(map[string][]*types.MethodDescriptor),
			match:  func(m *types.MethodDescriptor) bool { return m.IsPreAction },
		},
		post: actionList{
			byType: make(map[string][]*types.MethodDescriptor),
			match:  func(m *types.MethodDescriptor) bool { return m.IsPostAction },
		},
	}
}

// PreActions returns the pre-test actions of t sorted by declared order.
func (c *ActionCache) PreActions(t *types.TypeDescriptor) []*types.MethodDescriptor {
	return c.pre.get(t)
}

// PostActions returns the post-test actions of t sorted by declared order.
func (c *ActionCache) PostActions(t *types.TypeDescriptor) []*types.MethodDescriptor {
	return c.post.get(t)
}
