package progress

import (
	"math"
	"sort"
)

// rateRing は直近の処理速度を固定長で保持するリングバッファです。
type rateRing struct {
	buf  []float64
	next int
	full bool
}

func newRateRing(size int) *rateRing {
	if size <= 0 {
		size = 1
	}
	return &rateRing{buf: make([]float64, size)}
}

func (r *rateRing) push(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return
	}
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *rateRing) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// median は保持している値の中央値です。空なら 0 です。
func (r *rateRing) median() float64 {
	n := r.len()
	if n == 0 {
		return 0
	}
	vals := append([]float64(nil), r.buf[:n]...)
	sort.Float64s(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}
