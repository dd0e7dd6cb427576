// Package indicator maintains the per-symbol candle windows and derives
// the MACD buy/sell gate and the RSI-driven lot and grid sizing.
package indicator

// Ring is a fixed-capacity window of close prices. Appending at capacity
// evicts the oldest element; the indicator math receives a contiguous
// copy via Values.
type Ring struct {
	buf   []float64
	start int
	size  int
}

func NewRing(capacity int) *Ring {
	return &Ring{buf: make([]float64, capacity)}
}

// Append pushes a value, evicting the head when full.
func (r *Ring) Append(v float64) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// SetLast overwrites the newest element. No-op while empty.
func (r *Ring) SetLast(v float64) {
	if r.size == 0 {
		return
	}
	r.buf[(r.start+r.size-1)%len(r.buf)] = v
}

// Last returns the newest element, zero while empty.
func (r *Ring) Last() float64 {
	if r.size == 0 {
		return 0
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)]
}

// Len returns the number of stored elements.
func (r *Ring) Len() int {
	return r.size
}

// Values returns the window oldest-first as a contiguous slice.
func (r *Ring) Values() []float64 {
	out := make([]float64, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
