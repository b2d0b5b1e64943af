package indicator

// ring is a fixed-capacity window over the most recent values with a
// compensated running sum.
type ring struct {
	buf   []float64
	idx   int
	count int
	sum   float64
	comp  float64
}

func newRing(size int) *ring {
	if size < 1 {
		size = 1
	}
	return &ring{buf: make([]float64, size)}
}

func (r *ring) push(v float64) {
	if r.count >= len(r.buf) {
		r.add(-r.buf[r.idx])
	} else {
		r.count++
	}
	r.buf[r.idx] = v
	r.add(v)
	r.idx = (r.idx + 1) % len(r.buf)
}

// add is Kahan summation; plain running sums drift over long series.
func (r *ring) add(v float64) {
	y := v - r.comp
	t := r.sum + y
	r.comp = (t - r.sum) - y
	r.sum = t
}

func (r *ring) full() bool { return r.count >= len(r.buf) }

func (r *ring) mean() float64 {
	if r.count == 0 {
		return 0
	}
	return r.sum / float64(r.count)
}

func (r *ring) min() float64 {
	m := 0.0
	for i := 0; i < r.count; i++ {
		if v := r.buf[i]; i == 0 || v < m {
			m = v
		}
	}
	return m
}

func (r *ring) max() float64 {
	m := 0.0
	for i := 0; i < r.count; i++ {
		if v := r.buf[i]; i == 0 || v > m {
			m = v
		}
	}
	return m
}
