// Package hls defines the domain model shared by the packager: renditions,
// media timestamps, encoder fragments, segment records, and playlist text.
package hls

import "fmt"

// VideoQuality is a fixed video quality level with a known resolution and
// bitrate.
type VideoQuality int

const (
	QualityHigh VideoQuality = iota // 1080p, 7.5 Mbps
	QualityMedium                   // 720p, 3.8 Mbps
	QualityLow                      // 360p, 350 kbps
)

// VideoQualities lists all quality levels from highest to lowest.
var VideoQualities = []VideoQuality{QualityHigh, QualityMedium, QualityLow}

// Name returns the destination path prefix for this quality level.
func (q VideoQuality) Name() string {
	switch q {
	case QualityHigh:
		return "high"
	case QualityMedium:
		return "medium"
	case QualityLow:
		return "low"
	default:
		return fmt.Sprintf("quality(%d)", int(q))
	}
}

// Resolution returns the encoded frame size in pixels.
func (q VideoQuality) Resolution() (width, height int) {
	switch q {
	case QualityHigh:
		return 1920, 1080
	case QualityMedium:
		return 1280, 720
	default:
		return 640, 360
	}
}

// Bitrate returns the target bitrate in bits per second.
func (q VideoQuality) Bitrate() int {
	switch q {
	case QualityHigh:
		return int(7.5 * 1024 * 1024)
	case QualityMedium:
		mbps := 3.8
		return int(mbps * 1024 * 1024)
	default:
		return 350 * 1024
	}
}

// RenditionKey identifies one quality/track variant of a logical stream:
// a video quality level or the audio track.
type RenditionKey struct {
	Audio   bool
	Quality VideoQuality
}

// VideoRendition returns the key for a video quality level.
func VideoRendition(q VideoQuality) RenditionKey {
	return RenditionKey{Quality: q}
}

// AudioRendition is the key for the audio track.
var AudioRendition = RenditionKey{Audio: true}

// AllRenditions lists every rendition in fixed order: video qualities from
// high to low, then audio. Column order in performance logs and master
// playlist entries depends on this order.
var AllRenditions = []RenditionKey{
	VideoRendition(QualityHigh),
	VideoRendition(QualityMedium),
	VideoRendition(QualityLow),
	AudioRendition,
}

// Prefix returns the destination path prefix ("high", "medium", "low",
// "audio") for this rendition.
func (k RenditionKey) Prefix() string {
	if k.Audio {
		return "audio"
	}
	return k.Quality.Name()
}

func (k RenditionKey) String() string {
	return k.Prefix()
}
