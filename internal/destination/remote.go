package destination

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/solsticetv/hls-packager/internal/hls"
	"github.com/solsticetv/hls-packager/internal/logging"
	"github.com/solsticetv/hls-packager/internal/metrics"
	"github.com/solsticetv/hls-packager/internal/perf"
)

// remoteWindow is the rolling live playlist depth at a remote destination.
const remoteWindow = 10

// ObjectStore PUTs an opaque byte blob at a key. The production
// implementation is a gocloud.dev blob bucket; tests substitute fakes.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error
}

// PutOptions carries the object metadata destinations control.
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// Remote persists one rendition's segments to an object store and maintains
// its rolling live playlist there.
//
// Failure policy: the initialization fragment is retried until it succeeds or
// the pipeline is cancelled, since nothing downstream is valid without it.
// A media fragment is retried once; a second failure truncates the rolling
// window at the failed id so the next playlist only references segments this
// destination actually holds, and the error propagates to the caller for
// logging. The playlist upload is ordered after the segment's own upload so
// the playlist never references a segment not yet durably stored here.
type Remote struct {
	store          ObjectStore
	rendition      hls.RenditionKey
	targetDuration int

	records       []hls.SegmentRecord
	discontinuity int

	tracker *perf.Tracker
	now     func() time.Time
	log     *slog.Logger
}

// RemoteOption configures a Remote destination.
type RemoteOption func(*Remote)

// WithTracker records upload-stage performance ratios into tracker.
func WithTracker(t *perf.Tracker) RemoteOption {
	return func(d *Remote) { d.tracker = t }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) RemoteOption {
	return func(d *Remote) { d.now = now }
}

// NewRemote creates a destination uploading through store.
func NewRemote(store ObjectStore, rendition hls.RenditionKey, targetDuration int, opts ...RemoteOption) *Remote {
	d := &Remote{
		store:          store,
		rendition:      rendition,
		targetDuration: targetDuration,
		now:            time.Now,
		log:            logging.Destination(rendition, "remote"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name identifies this destination in logs and errors.
func (d *Remote) Name() string { return "remote" }

// Write persists one fragment.
func (d *Remote) Write(ctx context.Context, f hls.Fragment, sequenceID int) error {
	switch f.Kind {
	case hls.FragmentInitialization:
		return d.writeInit(ctx, f)
	case hls.FragmentMedia:
		return d.writeMedia(ctx, f, sequenceID)
	default:
		return nil
	}
}

// writeInit uploads the initialization blob, retrying with backoff until it
// succeeds or ctx is cancelled. Blocking this destination's queue is
// intentional: no segment or playlist is meaningful before 0.mp4 exists.
func (d *Remote) writeInit(ctx context.Context, f hls.Fragment) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0 // retry forever

	attempt := 0
	err := backoff.Retry(func() error {
		err := d.store.Put(ctx, d.key("0.mp4"), f.Bytes, PutOptions{
			ContentType:  contentTypeInit,
			CacheControl: cacheImmutable,
		})
		if err != nil {
			attempt++
			d.log.Error("failed to write initialization segment, retrying until cancelled",
				"error", err, "attempt", attempt)
			if m := metrics.Get(); m != nil {
				m.RetryAttempts.WithLabelValues(d.rendition.Prefix(), d.Name()).Inc()
			}
		}
		return err
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return &WriteError{Destination: d.Name(), SequenceID: 0, Err: err}
	}
	return nil
}

func (d *Remote) writeMedia(ctx context.Context, f hls.Fragment, sequenceID int) error {
	start := d.now()

	if last, ok := d.lastRecord(); ok && sequenceID != last.SequenceID+1 {
		d.log.Warn("segment id is not contiguous, resetting window",
			"sequence_id", sequenceID, "last_sequence_id", last.SequenceID)
		d.reset()
	}

	record := hls.SegmentRecord{
		SequenceID:      sequenceID,
		DiscontinuityID: d.discontinuity,
		DurationSeconds: f.Range.Seconds(),
	}
	d.records = append(d.records, record)
	if len(d.records) > remoteWindow {
		d.records = d.records[len(d.records)-remoteWindow:]
	}

	if err := d.uploadSegment(ctx, f, record); err != nil {
		// Second failure: heal by dropping everything up to and including
		// the failed segment, so the next playlist starts a fresh window.
		d.truncate(sequenceID)
		if m := metrics.Get(); m != nil {
			m.WriteErrors.WithLabelValues(d.rendition.Prefix(), d.Name()).Inc()
		}
		return &WriteError{Destination: d.Name(), SequenceID: sequenceID, Err: err}
	}

	playlist := hls.MediaPlaylist(d.records, "", d.targetDuration)
	if err := d.store.Put(ctx, d.key("live.m3u8"), []byte(playlist), PutOptions{
		ContentType:  contentTypePlaylist,
		CacheControl: cacheNone,
	}); err != nil {
		return &WriteError{Destination: d.Name(), SequenceID: sequenceID, Err: fmt.Errorf("refresh playlist: %w", err)}
	}

	elapsed := d.now().Sub(start)
	if m := metrics.Get(); m != nil {
		m.SegmentsWritten.WithLabelValues(d.rendition.Prefix(), d.Name()).Inc()
		m.UploadDuration.WithLabelValues(d.rendition.Prefix(), d.Name()).Observe(elapsed.Seconds())
	}
	if d.tracker != nil && record.DurationSeconds > 0 {
		d.tracker.Record(elapsed.Seconds()/record.DurationSeconds, perf.Key{
			Rendition: d.rendition,
			Stage:     perf.StageUpload,
		})
	}
	return nil
}

// uploadSegment PUTs the segment bytes, retrying exactly once on failure.
func (d *Remote) uploadSegment(ctx context.Context, f hls.Fragment, record hls.SegmentRecord) error {
	put := func() error {
		return d.store.Put(ctx, d.key(record.Name()), f.Bytes, PutOptions{
			ContentType:  contentTypeSegment,
			CacheControl: cacheImmutable,
		})
	}

	err := put()
	if err == nil {
		return nil
	}

	d.log.Error("failed to upload segment, retrying", "error", err, "sequence_id", record.SequenceID)
	if m := metrics.Get(); m != nil {
		m.RetryAttempts.WithLabelValues(d.rendition.Prefix(), d.Name()).Inc()
	}
	return put()
}

// Records returns the destination's current rolling window.
func (d *Remote) Records() []hls.SegmentRecord {
	out := make([]hls.SegmentRecord, len(d.records))
	copy(out, d.records)
	return out
}

func (d *Remote) lastRecord() (hls.SegmentRecord, bool) {
	if len(d.records) == 0 {
		return hls.SegmentRecord{}, false
	}
	return d.records[len(d.records)-1], true
}

func (d *Remote) reset() {
	d.records = d.records[:0]
	d.discontinuity++
	if m := metrics.Get(); m != nil {
		m.WindowResets.WithLabelValues(d.rendition.Prefix(), d.Name()).Inc()
	}
}

// truncate drops every record at or below sequenceID and starts a new
// discontinuity range for whatever follows.
func (d *Remote) truncate(sequenceID int) {
	kept := d.records[:0]
	for _, r := range d.records {
		if r.SequenceID > sequenceID {
			kept = append(kept, r)
		}
	}
	d.records = kept
	d.discontinuity++
	if m := metrics.Get(); m != nil {
		m.WindowResets.WithLabelValues(d.rendition.Prefix(), d.Name()).Inc()
	}
}

func (d *Remote) key(name string) string {
	return d.rendition.Prefix() + "/" + name
}
