package destination

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"log/slog"

	"github.com/solsticetv/hls-packager/internal/hls"
	"github.com/solsticetv/hls-packager/internal/logging"
	"github.com/solsticetv/hls-packager/internal/metrics"
)

// localWindow is the retention size of a local destination's rolling window.
// Disk is cheap relative to object storage, so the local playlist keeps a
// deep history.
const localWindow = 300

// Local persists one rendition's segments to a directory on disk and
// maintains its rolling live playlist. All file writes are atomic replaces
// (temp file + rename); a cancelled write leaves the last completed state on
// disk.
type Local struct {
	dir            string
	rendition      hls.RenditionKey
	targetDuration int

	records []hls.SegmentRecord

	log *slog.Logger
}

// NewLocal creates the rendition's directory and a destination writing into
// it.
func NewLocal(baseDir string, rendition hls.RenditionKey, targetDuration int) (*Local, error) {
	dir := filepath.Join(baseDir, rendition.Prefix())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create destination directory %s: %w", dir, err)
	}

	return &Local{
		dir:            dir,
		rendition:      rendition,
		targetDuration: targetDuration,
		log:            logging.Destination(rendition, "local"),
	}, nil
}

// Name identifies this destination in logs and errors.
func (d *Local) Name() string { return "local" }

// Write persists one fragment. Initialization fragments become 0.mp4; media
// fragments become {id}.m4s followed by an atomic rebuild of live.m3u8 from
// the rolling window.
func (d *Local) Write(ctx context.Context, f hls.Fragment, sequenceID int) error {
	switch f.Kind {
	case hls.FragmentInitialization:
		if err := writeFileAtomic(filepath.Join(d.dir, "0.mp4"), f.Bytes); err != nil {
			return &WriteError{Destination: d.Name(), SequenceID: 0, Err: err}
		}
		return nil

	case hls.FragmentMedia:
		record := hls.SegmentRecord{
			SequenceID:      sequenceID,
			DurationSeconds: f.Range.Seconds(),
		}
		d.records = append(d.records, record)
		if len(d.records) > localWindow {
			d.records = d.records[len(d.records)-localWindow:]
		}

		if err := writeFileAtomic(filepath.Join(d.dir, record.Name()), f.Bytes); err != nil {
			return &WriteError{Destination: d.Name(), SequenceID: sequenceID, Err: err}
		}

		playlist := hls.MediaPlaylist(d.records, "", d.targetDuration)
		if err := writeFileAtomic(filepath.Join(d.dir, "live.m3u8"), []byte(playlist)); err != nil {
			return &WriteError{Destination: d.Name(), SequenceID: sequenceID, Err: err}
		}

		if m := metrics.Get(); m != nil {
			m.SegmentsWritten.WithLabelValues(d.rendition.Prefix(), d.Name()).Inc()
		}
		return nil

	default:
		return nil
	}
}

// Records returns the destination's current rolling window.
func (d *Local) Records() []hls.SegmentRecord {
	out := make([]hls.SegmentRecord, len(d.records))
	copy(out, d.records)
	return out
}

// writeFileAtomic replaces path with data using a temp file + rename so
// readers never observe a partial write.
func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file %s: %w", tempPath, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename %s to %s: %w", tempPath, path, err)
	}
	return nil
}
