package hls

import (
	"fmt"
	"strconv"
	"strings"
)

// Playlist generation is side-effect free: destinations choose the record
// slice (a rolling suffix for live playlists, full history for VOD) and
// rewrite the result wherever they publish.

// MediaPlaylist renders an HLS media playlist over an ordered record slice.
// targetDuration is the configured segment interval in seconds. prefix, when
// non-empty, is prepended (with a slash) to every object URI, including the
// initialization map.
func MediaPlaylist(records []SegmentRecord, prefix string, targetDuration int) string {
	if prefix != "" {
		prefix += "/"
	}

	startSequence := 1
	startDiscontinuity := 1
	if len(records) > 0 {
		startSequence = records[0].SequenceID
		startDiscontinuity = records[0].DiscontinuityID
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", targetDuration)
	b.WriteString("#EXT-X-VERSION:9\n")
	fmt.Fprintf(&b, "#EXT-X-MEDIA-SEQUENCE:%d\n", startSequence)
	fmt.Fprintf(&b, "#EXT-X-DISCONTINUITY-SEQUENCE:%d\n", startDiscontinuity)
	fmt.Fprintf(&b, "#EXT-X-MAP:URI=%q\n", prefix+"0.mp4")

	for i, record := range records {
		if i > 0 && record.DiscontinuityID != records[i-1].DiscontinuityID {
			b.WriteString("#EXT-X-DISCONTINUITY\n")
		}
		fmt.Fprintf(&b, "#EXTINF:%s,\n", formatSeconds(record.DurationSeconds))
		b.WriteString(prefix)
		b.WriteString(record.Name())
		b.WriteByte('\n')
	}

	return b.String()
}

// MasterPlaylist renders the stream-root variant playlist referencing each
// video quality's live playlist plus the shared audio group.
func MasterPlaylist(qualities []VideoQuality) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString(`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="audio",LANGUAGE="en",NAME="English",AUTOSELECT=YES, DEFAULT=YES,URI="audio/live.m3u8"`)
	b.WriteString("\n\n")

	entries := make([]string, 0, len(qualities))
	for _, q := range qualities {
		w, h := q.Resolution()
		entries = append(entries, fmt.Sprintf(
			"#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=%d,RESOLUTION=%dx%d,CODECS=\"avc1.4d401e\",AUDIO=\"audio\"\n%s/live.m3u8",
			q.Bitrate(), w, h, q.Name(),
		))
	}
	b.WriteString(strings.Join(entries, "\n"))

	return b.String()
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}
