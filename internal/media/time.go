package media

import (
	"fmt"
	"math"
	"time"
)

// Time is a rational timestamp of Value/Timescale seconds.
type Time struct {
	Value     int64
	Timescale int32
}

// Zero is the zero timestamp.
var Zero = Time{Value: 0, Timescale: 1}

func NewTime(value int64, timescale int32) Time {
	return Time{Value: value, Timescale: timescale}
}

// FrameDuration is one frame at rate frames per second. A rate that does not
// fit a positive timescale yields an invalid Time.
func FrameDuration(rate int) Time {
	if rate <= 0 || rate > math.MaxInt32 {
		return Time{}
	}
	return Time{Value: 1, Timescale: int32(rate)}
}

func (t Time) IsValid() bool {
	return t.Timescale > 0
}

// Add returns t+o, keeping the timescale exact when both share one.
func (t Time) Add(o Time) Time {
	if !t.IsValid() || !o.IsValid() {
		return Time{}
	}
	if t.Timescale == o.Timescale {
		return Time{Value: t.Value + o.Value, Timescale: t.Timescale}
	}

	a, b := int64(t.Timescale), int64(o.Timescale)
	scale := a / gcd(a, b) * b
	if scale > math.MaxInt32 {
		// fall back to the finer of the two timescales
		scale = max(a, b)
		return Time{
			Value:     rescale(t.Value, a, scale) + rescale(o.Value, b, scale),
			Timescale: int32(scale),
		}
	}

	return Time{
		Value:     t.Value*(scale/a) + o.Value*(scale/b),
		Timescale: int32(scale),
	}
}

// Compare returns -1, 0 or +1 when t is before, equal to or after o.
func (t Time) Compare(o Time) int {
	l := t.Value * int64(o.Timescale)
	r := o.Value * int64(t.Timescale)
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}

func (t Time) Seconds() float64 {
	if !t.IsValid() {
		return 0
	}
	return float64(t.Value) / float64(t.Timescale)
}

func (t Time) Duration() time.Duration {
	if !t.IsValid() {
		return 0
	}
	return time.Duration(t.Value) * time.Second / time.Duration(t.Timescale)
}

func (t Time) String() string {
	return fmt.Sprintf("%d/%d", t.Value, t.Timescale)
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func rescale(value, from, to int64) int64 {
	return int64(math.Round(float64(value) * float64(to) / float64(from)))
}
