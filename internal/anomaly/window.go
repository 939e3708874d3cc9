package anomaly

import "math"

// window is a fixed-size ring of confidence observations. unstable latches
// while the spread exceeds the configured limit so the detector reports each
// instability episode once instead of on every submission.
type window struct {
	values   []float64
	next     int
	count    int
	unstable bool
}

func newWindow(size int) *window {
	return &window{values: make([]float64, size)}
}

func (w *window) push(value float64) {
	w.values[w.next] = value
	w.next = (w.next + 1) % len(w.values)
	if w.count < len(w.values) {
		w.count++
	}
}

func (w *window) full() bool {
	return w.count == len(w.values)
}

func (w *window) stddev() float64 {
	if w.count < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < w.count; i++ {
		sum += w.values[i]
	}
	mean := sum / float64(w.count)
	var variance float64
	for i := 0; i < w.count; i++ {
		diff := w.values[i] - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(w.count))
}
