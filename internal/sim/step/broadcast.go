package step

import "math"

// BroadcastTimer fires at a fixed interval driven by accumulated frame time.
// Overshoot carries into the next period.
type BroadcastTimer struct {
	interval float32
	acc      float32
}

func NewBroadcastTimer(interval float32) *BroadcastTimer {
	return &BroadcastTimer{interval: interval}
}

// Advance adds dt and reports whether a broadcast is due. At most one
// broadcast fires per call, matching one full-state send per tick, and a
// long frame does not queue up further broadcasts.
func (b *BroadcastTimer) Advance(dt float32) bool {
	b.acc += dt
	if b.acc < b.interval {
		return false
	}
	b.acc -= b.interval
	if b.acc >= b.interval {
		b.acc = float32(math.Mod(float64(b.acc), float64(b.interval)))
		if !(b.acc >= 0 && b.acc < b.interval) {
			b.acc = 0
		}
	}
	return true
}

func (b *BroadcastTimer) Reset() { b.acc = 0 }

func (b *BroadcastTimer) Pending() float32 { return b.acc }
