package hls

import "fmt"

// SegmentRecord is a published, numbered media segment as a destination's
// playlist sees it. Records are immutable once created and live in each
// destination's rolling window in sequence order.
type SegmentRecord struct {
	SequenceID      int
	DiscontinuityID int

	// DurationSeconds is the segment duration in seconds.
	DurationSeconds float64
}

// Name returns the media segment object name.
func (r SegmentRecord) Name() string {
	return fmt.Sprintf("%d.m4s", r.SequenceID)
}
