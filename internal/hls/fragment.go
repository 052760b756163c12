package hls

import "fmt"

// FragmentKind distinguishes the two encoder output types.
type FragmentKind int

const (
	// FragmentInitialization is the codec/container setup blob. It carries
	// no time range and is written once per destination as 0.mp4.
	FragmentInitialization FragmentKind = iota

	// FragmentMedia is a timed media chunk, numbered by the sequencer and
	// written as {id}.m4s.
	FragmentMedia
)

func (k FragmentKind) String() string {
	switch k {
	case FragmentInitialization:
		return "initialization"
	case FragmentMedia:
		return "media"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Fragment is one encoder output unit. Ownership transfers to the pipeline
// that received it; the bytes are never mutated afterwards.
type Fragment struct {
	Kind  FragmentKind
	Bytes []byte

	// Range is the presentation time interval covered by a media fragment.
	// Zero for initialization fragments.
	Range TimeRange
}
