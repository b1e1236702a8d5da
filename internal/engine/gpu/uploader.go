package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	gomath "math"

	"github.com/Faultbox/armorstand/internal/model/data"
	"github.com/Faultbox/armorstand/pkg/cow"
)

// ErrNoEncoder is returned when no encoder is registered for a type tag.
var ErrNoEncoder = errors.New("no encoder registered")

// Std140FloatStride is the byte stride of a float array element in a std140 block.
const Std140FloatStride = 16

// Encoder turns buffer content into the bytes of a uniform block.
type Encoder func(content any) ([]byte, error)

// SlotKey names one uploaded buffer: the owner (usually an entity), the type
// tag and an index for owners holding several buffers of one type.
type SlotKey struct {
	Owner  string
	TypeID string
	Index  int
}

type slot struct {
	id      uint32
	content any
	held    interface{ Release() }
}

// Uploader keeps one uniform buffer per slot and re-uploads it only when the
// copy-on-write content behind the slot changed.
//
// The uploader holds a snapshot of every uploaded content, so the owner's next
// edit forks a new copy instead of writing into the uploaded one.
type Uploader struct {
	dev      Device
	encoders map[string]Encoder
	slots    map[SlotKey]*slot

	uploads int
}

// NewUploader creates an uploader with encoders for the model data buffers.
func NewUploader(dev Device) *Uploader {
	u := &Uploader{
		dev:      dev,
		encoders: make(map[string]Encoder),
		slots:    make(map[SlotKey]*slot),
	}
	u.Register(data.ModelMatricesTypeID, encodeModelMatrices)
	u.Register(data.RenderSkinTypeID, encodeRenderSkin)
	u.Register(data.MorphWeightsTypeID, encodeMorphWeights)
	return u
}

// Register sets the encoder for a type tag, replacing any previous one.
func (u *Uploader) Register(typeID string, enc Encoder) {
	u.encoders[typeID] = enc
}

// Uploads returns the number of buffer writes issued so far.
func (u *Uploader) Uploads() int { return u.uploads }

// Upload makes the content of b current in the slot (owner, type, index) and
// returns the buffer object.
func Upload[C cow.Content[C]](u *Uploader, owner string, index int, b *cow.Buffer[C]) (uint32, error) {
	key := SlotKey{Owner: owner, TypeID: b.TypeID(), Index: index}
	content := b.Content()

	s, ok := u.slots[key]
	if ok && s.content == any(content) {
		return s.id, nil
	}

	enc, found := u.encoders[key.TypeID]
	if !found {
		return 0, fmt.Errorf("%w: %s", ErrNoEncoder, key.TypeID)
	}
	bytes, err := enc(content)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", key.TypeID, err)
	}

	if !ok {
		s = &slot{id: u.dev.CreateBuffer(BufferUniform, bytes)}
		u.slots[key] = s
	} else {
		u.dev.UpdateBuffer(BufferUniform, s.id, bytes)
		s.held.Release()
	}
	s.content = content
	s.held = b.Snapshot()
	u.uploads++
	return s.id, nil
}

// Forget deletes every slot of an owner.
func (u *Uploader) Forget(owner string) {
	for key, s := range u.slots {
		if key.Owner == owner {
			u.drop(key, s)
		}
	}
}

// Retain deletes the slots of every owner for which keep returns false.
func (u *Uploader) Retain(keep func(owner string) bool) {
	for key, s := range u.slots {
		if !keep(key.Owner) {
			u.drop(key, s)
		}
	}
}

// Close deletes every slot.
func (u *Uploader) Close() {
	for key, s := range u.slots {
		u.drop(key, s)
	}
}

func (u *Uploader) drop(key SlotKey, s *slot) {
	u.dev.DeleteBuffer(s.id)
	s.held.Release()
	delete(u.slots, key)
}

func encodeModelMatrices(content any) ([]byte, error) {
	b, ok := content.(*data.ModelMatricesBuffer)
	if !ok {
		return nil, fmt.Errorf("unexpected content %T", content)
	}
	return b.Bytes(), nil
}

func encodeRenderSkin(content any) ([]byte, error) {
	b, ok := content.(*data.RenderSkinBuffer)
	if !ok {
		return nil, fmt.Errorf("unexpected content %T", content)
	}
	return b.Bytes(), nil
}

// encodeMorphWeights lays the weights out as a std140 float array.
func encodeMorphWeights(content any) ([]byte, error) {
	b, ok := content.(*data.MorphWeightsBuffer)
	if !ok {
		return nil, fmt.Errorf("unexpected content %T", content)
	}
	weights := b.All()
	out := make([]byte, len(weights)*Std140FloatStride)
	for i, w := range weights {
		binary.NativeEndian.PutUint32(out[i*Std140FloatStride:], gomath.Float32bits(w))
	}
	return out, nil
}
