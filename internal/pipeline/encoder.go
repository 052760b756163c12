package pipeline

import (
	"context"
	"time"

	"github.com/solsticetv/hls-packager/internal/hls"
)

// Clock reads the current presentation time. Fragments' time ranges and the
// clock must share one timeline; the default reads the host monotonic-ish
// wall clock at nanosecond scale.
type Clock func() hls.MediaTime

// HostClock is the default presentation clock.
func HostClock() hls.MediaTime {
	return hls.MediaTime{Value: time.Now().UnixNano(), Scale: 1e9}
}

// EncoderSession is one live encoder/muxer instance producing fragments for
// a single rendition. The session closes its fragment channel when it ends,
// whether cleanly, by error, or by cancellation; Err reports why.
type EncoderSession interface {
	// Fragments returns the session's fragment event stream.
	Fragments() <-chan hls.Fragment

	// Err returns the terminal session error, nil after a clean end.
	// Valid once Fragments is closed.
	Err() error

	// Close tears the session down. Safe to call more than once.
	Close()
}

// Encoder opens encoder sessions. It is an external collaborator: the real
// implementation wraps whatever capture/encode stack feeds the stream.
type Encoder interface {
	// Start opens a session for one rendition, beginning at the given
	// presentation time.
	Start(ctx context.Context, key hls.RenditionKey, start hls.MediaTime) (EncoderSession, error)
}
