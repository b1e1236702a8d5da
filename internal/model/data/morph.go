package data

// MorphWeightsBuffer holds the target group weights of every morphed primitive.
type MorphWeightsBuffer struct {
	offsets []int
	weights []float32
}

// NewMorphWeightsBuffer creates zeroed weights; groups[i] is the number of
// target groups of morphed primitive i.
func NewMorphWeightsBuffer(groups []int) *MorphWeightsBuffer {
	b := &MorphWeightsBuffer{offsets: make([]int, len(groups)+1)}
	for i, n := range groups {
		b.offsets[i+1] = b.offsets[i] + n
	}
	b.weights = make([]float32, b.offsets[len(groups)])
	return b
}

func (b *MorphWeightsBuffer) TypeID() string { return MorphWeightsTypeID }

// Primitives returns the number of morphed primitives.
func (b *MorphWeightsBuffer) Primitives() int { return len(b.offsets) - 1 }

// SetWeight sets the weight of one target group. Out of range writes are ignored.
func (b *MorphWeightsBuffer) SetWeight(primitive, group int, weight float32) {
	if i, ok := b.index(primitive, group); ok {
		b.weights[i] = weight
	}
}

// Weight returns the weight of one target group, zero when out of range.
func (b *MorphWeightsBuffer) Weight(primitive, group int) float32 {
	if i, ok := b.index(primitive, group); ok {
		return b.weights[i]
	}
	return 0
}

// Weights returns the group weights of one primitive. The slice aliases the buffer.
func (b *MorphWeightsBuffer) Weights(primitive int) []float32 {
	return b.weights[b.offsets[primitive]:b.offsets[primitive+1]]
}

// Offset returns the position of the first weight of a primitive in All.
func (b *MorphWeightsBuffer) Offset(primitive int) int { return b.offsets[primitive] }

// All returns every weight, primitive after primitive. The slice aliases the buffer.
func (b *MorphWeightsBuffer) All() []float32 { return b.weights }

// Clear zeroes every weight.
func (b *MorphWeightsBuffer) Clear() {
	clear(b.weights)
}

func (b *MorphWeightsBuffer) Copy() *MorphWeightsBuffer {
	c := &MorphWeightsBuffer{
		offsets: b.offsets,
		weights: make([]float32, len(b.weights)),
	}
	copy(c.weights, b.weights)
	return c
}

func (b *MorphWeightsBuffer) index(primitive, group int) (int, bool) {
	if primitive < 0 || primitive >= b.Primitives() {
		return 0, false
	}
	i := b.offsets[primitive] + group
	if group < 0 || i >= b.offsets[primitive+1] {
		return 0, false
	}
	return i, true
}
