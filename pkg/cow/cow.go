// Package cow implements copy-on-write handles over reference counted buffers.
//
// Several holders may share one content through Snapshot. A holder that needs to
// write calls Edit, which forks a private copy first when the content is shared,
// so no other holder ever observes the write.
package cow

import "github.com/Faultbox/armorstand/pkg/refcount"

// Content is a buffer that can live behind a copy-on-write handle.
type Content[C any] interface {
	// TypeID tags the content for runtime dispatch (GPU upload, debugging).
	TypeID() string
	// Copy returns an independent deep copy.
	Copy() C
}

// closer is implemented by content that owns memory needing explicit release.
type closer interface {
	Close()
}

type shared[C Content[C]] struct {
	content C
	count   refcount.Count
}

func newShared[C Content[C]](content C) *shared[C] {
	s := &shared[C]{content: content}
	s.count.Init(content.TypeID(), func() {
		if c, ok := any(s.content).(closer); ok {
			c.Close()
		}
	})
	s.count.Increase()
	return s
}

// Buffer is one holder's handle on shared content.
type Buffer[C Content[C]] struct {
	shared   *shared[C]
	released bool
}

// New wraps content in a handle holding the only reference.
func New[C Content[C]](content C) *Buffer[C] {
	return &Buffer[C]{shared: newShared(content)}
}

// Content returns the content for reading. Writes must go through Edit.
func (b *Buffer[C]) Content() C {
	b.checkOpen()
	return b.shared.content
}

// TypeID returns the content type tag.
func (b *Buffer[C]) TypeID() string {
	return b.shared.content.TypeID()
}

// Shared reports whether other handles reference the same content.
func (b *Buffer[C]) Shared() bool {
	return b.shared.count.References() > 1
}

// Snapshot returns a new handle sharing this content.
func (b *Buffer[C]) Snapshot() *Buffer[C] {
	b.checkOpen()
	b.shared.count.Increase()
	return &Buffer[C]{shared: b.shared}
}

// Fork returns a new handle over a deep copy of the content.
func (b *Buffer[C]) Fork() *Buffer[C] {
	b.checkOpen()
	return &Buffer[C]{shared: newShared(b.shared.content.Copy())}
}

// Edit returns content that only this handle references, copying it first
// when it is shared.
func (b *Buffer[C]) Edit() C {
	b.checkOpen()
	if b.Shared() {
		old := b.shared
		b.shared = newShared(old.content.Copy())
		old.count.Decrease()
	}
	return b.shared.content
}

// Release drops this handle's reference. The handle must not be used again.
func (b *Buffer[C]) Release() {
	b.checkOpen()
	b.released = true
	b.shared.count.Decrease()
}

func (b *Buffer[C]) checkOpen() {
	if b.released {
		panic("cow: " + b.shared.content.TypeID() + " handle used after release")
	}
}
