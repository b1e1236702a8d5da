// Package refcount provides explicit reference counting for resources that are
// shared between model instances.
//
// A Count is owned by a single goroutine (the render goroutine in practice).
// It uses no atomics; sharing a Count across goroutines without external
// synchronisation is a bug.
package refcount

import "fmt"

// Counted is implemented by every reference counted resource.
type Counted interface {
	Increase()
	Decrease()
	References() int
}

// Count is an embeddable reference counter.
// The zero value is an unreferenced, open counter.
type Count struct {
	name     string
	refs     int
	closed   bool
	onClosed func()
}

// New returns a counter that runs onClosed when the last reference is dropped.
func New(name string, onClosed func()) *Count {
	c := &Count{}
	c.Init(name, onClosed)
	return c
}

// Init sets the debug name and close hook of an embedded counter.
func (c *Count) Init(name string, onClosed func()) {
	c.name = name
	c.onClosed = onClosed
}

// Increase adds a reference. Panics if the resource was already released.
func (c *Count) Increase() {
	if c.closed {
		panic(fmt.Sprintf("refcount: %s used after release", c.label()))
	}
	c.refs++
}

// Decrease drops a reference and releases the resource when it was the last one.
// Decreasing an unreferenced counter panics.
func (c *Count) Decrease() {
	if c.closed || c.refs <= 0 {
		panic(fmt.Sprintf("refcount: %s decreased below zero", c.label()))
	}
	c.refs--
	if c.refs == 0 {
		c.closed = true
		if c.onClosed != nil {
			c.onClosed()
		}
	}
}

// References returns the current reference count.
func (c *Count) References() int {
	return c.refs
}

// Closed reports whether the last reference has been dropped.
func (c *Count) Closed() bool {
	return c.closed
}

// InUse reports whether the resource is referenced and not yet released.
func (c *Count) InUse() bool {
	return !c.closed && c.refs > 0
}

// CheckOpen panics if the resource was released.
func (c *Count) CheckOpen() {
	if c.closed {
		panic(fmt.Sprintf("refcount: %s used after release", c.label()))
	}
}

func (c *Count) label() string {
	if c.name == "" {
		return "resource"
	}
	return c.name
}
