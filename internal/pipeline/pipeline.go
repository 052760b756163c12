// Package pipeline orchestrates one rendition's flow from encoder fragments
// to destinations, and supervises the set of renditions that make up a
// stream.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/solsticetv/hls-packager/internal/destination"
	"github.com/solsticetv/hls-packager/internal/hls"
	"github.com/solsticetv/hls-packager/internal/logging"
	"github.com/solsticetv/hls-packager/internal/metrics"
	"github.com/solsticetv/hls-packager/internal/perf"
	"github.com/solsticetv/hls-packager/internal/sequencer"
)

// State is a rendition pipeline's lifecycle phase.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateStreaming
	StateStopping
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateStreaming:
		return "streaming"
	case StateStopping:
		return "stopping"
	default:
		return "failed"
	}
}

// Destination persists one fragment at one publication target.
type Destination interface {
	Name() string
	Write(ctx context.Context, f hls.Fragment, sequenceID int) error
}

// output pairs a destination with its ordered write queue.
type output struct {
	dest  Destination
	queue *destination.Queue
}

// Pipeline runs one rendition: it consumes fragment events from an encoder
// session, resolves sequence ids through the shared sequencer, and fans each
// fragment out to every destination. Encoder failure restarts the pipeline
// with a fresh session after a short delay; sibling renditions are never
// affected.
type Pipeline struct {
	key     hls.RenditionKey
	encoder Encoder
	seq     *sequencer.Sequencer
	tracker *perf.Tracker

	segmentInterval time.Duration
	restartDelay    time.Duration
	clock           Clock

	outputs []output
	state   atomic.Int32
	log     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the presentation clock, for tests.
func WithClock(clock Clock) Option {
	return func(p *Pipeline) { p.clock = clock }
}

// WithRestartDelay overrides the delay between encoder failure and the next
// session attempt.
func WithRestartDelay(d time.Duration) Option {
	return func(p *Pipeline) { p.restartDelay = d }
}

// New creates a pipeline for one rendition. Each destination gets its own
// ordered write queue bound to ctx, so a slow destination backs up only its
// own work.
func New(
	ctx context.Context,
	key hls.RenditionKey,
	encoder Encoder,
	seq *sequencer.Sequencer,
	tracker *perf.Tracker,
	segmentInterval time.Duration,
	dests []Destination,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		key:             key,
		encoder:         encoder,
		seq:             seq,
		tracker:         tracker,
		segmentInterval: segmentInterval,
		restartDelay:    time.Second,
		clock:           HostClock,
		log:             logging.Rendition(key),
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, d := range dests {
		p.outputs = append(p.outputs, output{
			dest:  d,
			queue: destination.NewQueue(ctx, d.Name()+"/"+key.Prefix(), 16),
		})
	}
	p.state.Store(int32(StateIdle))
	return p
}

// State returns the pipeline's current lifecycle phase.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Run drives the pipeline until ctx is cancelled, restarting the encoder
// session on failure. It always returns nil: a rendition's failures are its
// own to recover from.
func (p *Pipeline) Run(ctx context.Context) error {
	defer p.closeQueues()

	for {
		if ctx.Err() != nil {
			p.state.Store(int32(StateStopping))
			return nil
		}

		err := p.runSession(ctx)
		if ctx.Err() != nil {
			p.state.Store(int32(StateStopping))
			return nil
		}

		p.state.Store(int32(StateFailed))
		p.log.Error("encoder session failed, restarting", "error", err, "delay", p.restartDelay)
		if m := metrics.Get(); m != nil {
			m.PipelineRestarts.WithLabelValues(p.key.Prefix()).Inc()
		}

		select {
		case <-time.After(p.restartDelay):
		case <-ctx.Done():
			p.state.Store(int32(StateStopping))
			return nil
		}
	}
}

// runSession opens one encoder session at the next interval-aligned start
// time and consumes it to completion.
func (p *Pipeline) runSession(ctx context.Context) error {
	p.state.Store(int32(StateStarting))

	sessionID := uuid.New().String()
	log := p.log.With("session_id", sessionID)

	start := p.alignedStart()
	session, err := p.encoder.Start(ctx, p.key, start)
	if err != nil {
		return err
	}
	defer session.Close()

	p.state.Store(int32(StateStreaming))
	log.Info("streaming", "start", start.Seconds())

	for {
		select {
		case <-ctx.Done():
			session.Close()
			return ctx.Err()
		case f, ok := <-session.Fragments():
			if !ok {
				if err := session.Err(); err != nil {
					return err
				}
				return errors.New("encoder session ended")
			}
			p.handleFragment(ctx, f, log)
		}
	}
}

// alignedStart returns the next segment-interval boundary at or after now,
// so all renditions cut fragments on the same timeline.
func (p *Pipeline) alignedStart() hls.MediaTime {
	now := p.clock()
	interval := p.segmentInterval.Seconds()
	aligned := math.Ceil(now.Seconds()/interval) * interval
	return hls.MediaTimeAt(aligned, now.Scale)
}

func (p *Pipeline) handleFragment(ctx context.Context, f hls.Fragment, log *slog.Logger) {
	switch f.Kind {
	case hls.FragmentInitialization:
		p.fanOut(f, 0, log)

	case hls.FragmentMedia:
		id, err := p.seq.Assign(f.Range)
		if err != nil {
			// Older than the shared window; a late-started rendition can
			// never resolve ids already evicted. Skip, don't misnumber.
			log.Warn("no sequence id for fragment, dropping",
				"start", f.Range.Start.Seconds(), "end", f.Range.End.Seconds())
			if m := metrics.Get(); m != nil {
				m.FragmentsDropped.WithLabelValues(p.key.Prefix()).Inc()
			}
			return
		}
		if m := metrics.Get(); m != nil {
			m.LastSequenceID.Set(float64(p.seq.LastSequenceID()))
		}

		if duration := f.Range.Seconds(); duration > 0 && p.tracker != nil {
			lag := p.clock().Seconds() - f.Range.End.Seconds()
			p.tracker.Record(lag/duration, perf.Key{Rendition: p.key, Stage: perf.StageEncode})
		}

		p.fanOut(f, id, log)
	}
}

// fanOut hands the fragment to every destination's ordered queue. The
// enqueue is the only blocking point on the intake path; the writes
// themselves proceed concurrently across destinations.
func (p *Pipeline) fanOut(f hls.Fragment, sequenceID int, log *slog.Logger) {
	for _, out := range p.outputs {
		dest := out.dest
		out.queue.Add(func(ctx context.Context) {
			if err := dest.Write(ctx, f, sequenceID); err != nil {
				log.Error("destination write failed",
					"error", err, "destination", dest.Name(), "sequence_id", sequenceID)
			}
		})
	}
}

func (p *Pipeline) closeQueues() {
	for _, out := range p.outputs {
		out.queue.Close()
	}
}
