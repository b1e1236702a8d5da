package keyframe

type mapped[T, R any] struct {
	src       Data[T]
	temp      []T
	transform func(in *T, out *R)
}

// Map adapts src to another value type without copying its storage.
// newT builds the default values of the scratch frame decoded before projection.
func Map[T, R any](src Data[T], newT func() T, transform func(in *T, out *R)) Data[R] {
	temp := make([]T, src.Elements())
	for i := range temp {
		temp[i] = newT()
	}
	return &mapped[T, R]{src: src, temp: temp, transform: transform}
}

func (m *mapped[T, R]) Frames() int { return m.src.Frames() }

func (m *mapped[T, R]) Elements() int { return m.src.Elements() }

func (m *mapped[T, R]) Get(index int, out []R) {
	m.src.Get(index, m.temp)
	for i := range m.temp {
		m.transform(&m.temp[i], &out[i])
	}
}
