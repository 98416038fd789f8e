package wasm

import (
	"errors"
	"fmt"
	"sync"

	"ilwasm/internal/il"
)

// Registry holds handlers in dispatch order. The first handler whose
// CanHandle accepts an instruction wins, and the last handler must be the
// fallback so every instruction is handled.
type Registry struct {
	handlers []Handler
}

var errNoFallback = errors.New("registry must end with the fallback handler")

// NewRegistry validates and freezes a handler list.
func NewRegistry(handlers ...Handler) (*Registry, error) {
	if len(handlers) == 0 {
		return nil, errNoFallback
	}
	for i, h := range handlers {
		if h == nil {
			return nil, fmt.Errorf("handler %d is nil", i)
		}
		if h.Family() == FamFallback && i != len(handlers)-1 {
			return nil, fmt.Errorf("fallback handler at position %d shadows %d later handlers", i, len(handlers)-1-i)
		}
	}
	if handlers[len(handlers)-1].Family() != FamFallback {
		return nil, errNoFallback
	}
	return &Registry{handlers: append([]Handler(nil), handlers...)}, nil
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := NewRegistry(
		constantsHandler{},
		localsHandler{},
		argsHandler{},
		returnHandler{},
		arithHandler{},
		stackHandler{},
		staticFieldHandler{},
		instanceFieldHandler{},
		newObjHandler{},
		callHandler{},
		branchHandler{},
		stringHandler{},
		fallbackHandler{},
	)
	if err != nil {
		panic(err)
	}
	return r
})

// DefaultRegistry returns the shared registry of built-in handlers.
func DefaultRegistry() *Registry { return defaultRegistry() }

// Dispatch returns the first handler accepting ins.
func (r *Registry) Dispatch(ins *il.Instruction) Handler {
	for _, h := range r.handlers {
		if h.CanHandle(ins) {
			return h
		}
	}
	// unreachable for registries built by NewRegistry
	return fallbackHandler{}
}

// Handlers returns the handlers in dispatch order.
func (r *Registry) Handlers() []Handler {
	return append([]Handler(nil), r.handlers...)
}

// Families returns the handler families in dispatch order.
func (r *Registry) Families() []Family {
	out := make([]Family, len(r.handlers))
	for i, h := range r.handlers {
		out[i] = h.Family()
	}
	return out
}
