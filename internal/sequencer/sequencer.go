// Package sequencer assigns one consistent, monotonically increasing
// sequence number to media fragments arriving from independently-timed
// encoder instances.
//
// Each rendition's encoder decides its own fragment boundaries near, but not
// exactly at, the configured segment interval. The sequencer is the single
// source of truth that lets every rendition share one numbering despite that
// jitter: fragment time ranges are reduced to a coarse timescale, remembered
// in arrival order, and ranges that overlap a remembered range resolve to the
// id originally assigned to it.
package sequencer

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/solsticetv/hls-packager/internal/hls"
)

// idTimescale is the coarse timescale sequence ids are resolved at. Reducing
// precision to 15 ticks per second tolerates sub-frame jitter between
// encoders that should be describing the same wall-clock interval.
const idTimescale = 15

// maxWindow bounds the remembered range list. Trimming the oldest entries is
// safe: overlap resolution computes ids by distance from the end of the
// window, and trimmed ranges resolve to ErrNoSequenceID like any other range
// older than the window.
const maxWindow = 256

// ErrNoSequenceID is returned when a time range falls before every remembered
// range. The caller must drop the fragment for playlist purposes rather than
// misnumber it; this is not a fatal condition.
var ErrNoSequenceID = errors.New("time range older than sequence window")

// Sequencer is shared by all renditions of one logical stream. All methods
// are serialized.
type Sequencer struct {
	mu     sync.Mutex
	window []hls.TimeRange
	lastID int

	state *StateStore
	log   *slog.Logger
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithStateStore persists lastSequenceID across process restarts.
func WithStateStore(s *StateStore) Option {
	return func(sq *Sequencer) { sq.state = s }
}

// New creates a sequencer. When a state store is configured, numbering
// resumes from the persisted last sequence id.
func New(opts ...Option) *Sequencer {
	sq := &Sequencer{
		log: slog.With("component", "sequencer"),
	}
	for _, opt := range opts {
		opt(sq)
	}
	if sq.state != nil {
		sq.lastID = sq.state.LastSequenceID()
	}
	return sq
}

// Assign resolves the sequence id for a fragment's presentation time range.
//
// A range at or past the end of the window is genuinely new: it is appended
// and receives the next id. A range overlapping a remembered range resolves
// to that range's original id (the last overlapping range wins). A range
// before every remembered range returns ErrNoSequenceID.
func (sq *Sequencer) Assign(r hls.TimeRange) (int, error) {
	sq.mu.Lock()
	defer sq.mu.Unlock()

	r = r.Rescale(idTimescale)

	if len(sq.window) > 0 {
		last := sq.window[len(sq.window)-1]
		if r.Start.Value >= last.End.Value {
			sq.append(r)
			return sq.nextID(), nil
		}
		for i := len(sq.window) - 1; i >= 0; i-- {
			if sq.window[i].Overlaps(r) {
				offset := len(sq.window) - 1 - i
				return sq.lastID - offset, nil
			}
		}
		return 0, ErrNoSequenceID
	}

	sq.append(r)
	return sq.nextID(), nil
}

// LastSequenceID returns the most recently assigned id.
func (sq *Sequencer) LastSequenceID() int {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	return sq.lastID
}

func (sq *Sequencer) append(r hls.TimeRange) {
	sq.window = append(sq.window, r)
	if len(sq.window) > maxWindow {
		sq.window = sq.window[len(sq.window)-maxWindow:]
	}
}

func (sq *Sequencer) nextID() int {
	sq.lastID++
	if sq.state != nil {
		if err := sq.state.SetLastSequenceID(sq.lastID); err != nil {
			sq.log.Warn("failed to persist sequence state", "error", err, "sequence_id", sq.lastID)
		}
	}
	return sq.lastID
}
