package layout

import "ilwasm/internal/il"

type cache struct {
	byType map[*il.Type]cachedLayout
}

type cachedLayout struct {
	Layout TypeLayout
	Err    *LayoutError
}

func newCache() *cache {
	return &cache{byType: make(map[*il.Type]cachedLayout, 64)}
}

func (c *cache) get(t *il.Type) (cachedLayout, bool) {
	if c == nil {
		return cachedLayout{}, false
	}
	l, ok := c.byType[t]
	return l, ok
}

func (c *cache) put(t *il.Type, l TypeLayout, err *LayoutError) {
	if c == nil {
		return
	}
	c.byType[t] = cachedLayout{Layout: l, Err: err}
}

func (c *cache) len() int {
	if c == nil {
		return 0
	}
	return len(c.byType)
}
