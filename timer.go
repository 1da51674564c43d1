package pumpchart

import "math"

// TimerID indexes a Timer in Memory.
type TimerID int

// Timer counts ticks. It saturates at math.MaxInt32 instead of wrapping.
type Timer int32

// Reset sets the count back to zero.
func (t *Timer) Reset() {
	*t = 0
}

// Inc advances the count by one tick.
func (t *Timer) Inc() {
	if *t < math.MaxInt32 {
		*t++
	}
}

// AtLeast reports count >= threshold.
func (t Timer) AtLeast(threshold int32) bool {
	return int32(t) >= threshold
}

// Exceeds reports count > threshold.
func (t Timer) Exceeds(threshold int32) bool {
	return int32(t) > threshold
}
