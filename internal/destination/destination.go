// Package destination persists fragments and playlists at one or more
// publication targets. Each destination owns its own rolling window of
// segment records and republishes its playlist after every accepted media
// fragment.
package destination

import "fmt"

const (
	contentTypeInit     = "video/mp4"
	contentTypeSegment  = "video/iso.segment"
	contentTypePlaylist = "application/vnd.apple.mpegurl"

	cacheImmutable = "max-age=31536000, immutable"
	cacheNone      = "max-age=0, no-cache"
)

// WriteError reports a failed fragment write. It is recoverable: the
// destination has already healed its own window and siblings are unaffected.
type WriteError struct {
	Destination string
	SequenceID  int
	Err         error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: write segment %d: %v", e.Destination, e.SequenceID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
