package document

import (
	"context"
	"sync"
)

// BeforeTestInserter runs right before a fixture document is inserted.
type BeforeTestInserter interface {
	BeforeTestInsert(ctx context.Context, d *Doc) error
}

// TestErrorTolerator declares errors a doctype wants ignored while its
// fixtures are created.
type TestErrorTolerator interface {
	IgnoredTestErrors() []error
}

// Controllers maps doctypes to their controller. A controller implements any
// subset of the hook interfaces above.
type Controllers struct {
	mu sync.RWMutex
	m  map[string]any
}

func NewControllers() *Controllers {
	return &Controllers{m: make(map[string]any)}
}

func (c *Controllers) Register(doctype string, controller any) {
	c.mu.Lock()
	c.m[doctype] = controller
	c.mu.Unlock()
}

func (c *Controllers) Lookup(doctype string) any {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m[doctype]
}

// Prepare copies the controller's tolerated errors onto d.
func (c *Controllers) Prepare(d *Doc) {
	if t, ok := c.Lookup(d.Doctype).(TestErrorTolerator); ok {
		d.Flags.IgnoreTestErrors = append(d.Flags.IgnoreTestErrors, t.IgnoredTestErrors()...)
	}
}

// BeforeTestInsert runs the doctype's hook when it has one.
func (c *Controllers) BeforeTestInsert(ctx context.Context, d *Doc) error {
	if h, ok := c.Lookup(d.Doctype).(BeforeTestInserter); ok {
		return h.BeforeTestInsert(ctx, d)
	}
	return nil
}

// HookFuncs adapts plain functions to the controller interfaces.
type HookFuncs struct {
	BeforeInsert func(ctx context.Context, d *Doc) error
	Ignore       []error
}

func (h HookFuncs) BeforeTestInsert(ctx context.Context, d *Doc) error {
	if h.BeforeInsert == nil {
		return nil
	}
	return h.BeforeInsert(ctx, d)
}

func (h HookFuncs) IgnoredTestErrors() []error {
	return h.Ignore
}
