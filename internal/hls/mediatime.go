package hls

import "time"

// MediaTime is a rational presentation timestamp: Value ticks at Scale ticks
// per second. Independently-timed encoders produce timestamps at different
// scales (30 Hz frames, 48 kHz audio), so comparisons first rescale both
// sides to a common timescale.
type MediaTime struct {
	Value int64
	Scale int32
}

// MediaTimeAt builds a MediaTime from whole-ish seconds at the given scale.
func MediaTimeAt(seconds float64, scale int32) MediaTime {
	return MediaTime{Value: int64(roundHalfAway(seconds * float64(scale))), Scale: scale}
}

// Seconds returns the timestamp as floating-point seconds.
func (t MediaTime) Seconds() float64 {
	if t.Scale == 0 {
		return 0
	}
	return float64(t.Value) / float64(t.Scale)
}

// Rescale converts the timestamp to another timescale, rounding half away
// from zero.
func (t MediaTime) Rescale(scale int32) MediaTime {
	if t.Scale == 0 || t.Scale == scale {
		return MediaTime{Value: t.Value, Scale: scale}
	}
	num := t.Value * int64(scale)
	den := int64(t.Scale)
	q := num / den
	r := num % den
	if r < 0 {
		r = -r
	}
	if 2*r >= den {
		if num < 0 {
			q--
		} else {
			q++
		}
	}
	return MediaTime{Value: q, Scale: scale}
}

func roundHalfAway(v float64) float64 {
	if v < 0 {
		return float64(int64(v - 0.5))
	}
	return float64(int64(v + 0.5))
}

// TimeRange is a half-open presentation time interval [Start, End).
type TimeRange struct {
	Start MediaTime
	End   MediaTime
}

// IsZero reports whether the range carries no timing information, as for
// initialization fragments.
func (r TimeRange) IsZero() bool {
	return r.Start == (MediaTime{}) && r.End == (MediaTime{})
}

// Duration returns the range length.
func (r TimeRange) Duration() time.Duration {
	return time.Duration((r.End.Seconds() - r.Start.Seconds()) * float64(time.Second))
}

// Seconds returns the range length as floating-point seconds.
func (r TimeRange) Seconds() float64 {
	return r.End.Seconds() - r.Start.Seconds()
}

// Rescale converts both endpoints to the given timescale.
func (r TimeRange) Rescale(scale int32) TimeRange {
	return TimeRange{Start: r.Start.Rescale(scale), End: r.End.Rescale(scale)}
}

// Overlaps reports whether two ranges share any instant. Both ranges must be
// at the same timescale.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Value < other.End.Value && other.Start.Value < r.End.Value
}
