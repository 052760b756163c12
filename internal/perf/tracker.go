// Package perf measures whether each pipeline stage keeps pace with real
// time. Stages record elapsed-time/fragment-duration ratios; a ratio above
// 1.0 means the stage took longer than the fragment it was processing covers,
// i.e. the pipeline is falling behind.
package perf

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/solsticetv/hls-packager/internal/hls"
)

// Stage is a measured pipeline stage.
type Stage int

const (
	StageEncode Stage = iota
	StageUpload
)

// Stages lists all stages in fixed column order.
var Stages = []Stage{StageEncode, StageUpload}

func (s Stage) String() string {
	switch s {
	case StageEncode:
		return "encode"
	default:
		return "upload"
	}
}

// Key identifies one measured series.
type Key struct {
	Rendition hls.RenditionKey
	Stage     Stage
}

// AllKeys lists every (rendition, stage) pair in the fixed order used for
// CSV columns.
func AllKeys() []Key {
	keys := make([]Key, 0, len(hls.AllRenditions)*len(Stages))
	for _, r := range hls.AllRenditions {
		for _, s := range Stages {
			keys = append(keys, Key{Rendition: r, Stage: s})
		}
	}
	return keys
}

// Header returns the CSV column label for this key, e.g. "High encode".
func (k Key) Header() string {
	prefix := k.Rendition.Prefix()
	return strings.ToUpper(prefix[:1]) + prefix[1:] + " " + k.Stage.String()
}

// maxSamples bounds each series; the oldest ratio is evicted first.
const maxSamples = 50

// flushInterval is the minimum wall-clock time between summary rows.
const flushInterval = 5 * time.Minute

// Tracker records ratios per (rendition, stage) and periodically appends a
// rolling summary row to a CSV log. Shared, serialized state: every rendition
// reports into the same tracker.
type Tracker struct {
	mu        sync.Mutex
	samples   map[Key][]float64
	lastFlush time.Time

	logPath string
	now     func() time.Time
	log     *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithNow replaces the wall clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a tracker that appends summary rows to logPath.
func New(logPath string, opts ...Option) *Tracker {
	t := &Tracker{
		samples: make(map[Key][]float64),
		logPath: logPath,
		now:     time.Now,
		log:     slog.With("component", "perf"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record appends a ratio to the key's series. Once the series is full and the
// flush interval has elapsed since the last summary row (tracked by
// timestamp, not a timer), the same call synchronously appends one row.
func (t *Tracker) Record(ratio float64, key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()

	series := append(t.samples[key], ratio)
	if len(series) > maxSamples {
		series = series[len(series)-maxSamples:]
	}
	t.samples[key] = series

	if len(series) >= maxSamples && t.needsFlush() {
		t.flush()
	}
}

// Average returns the mean of the key's current series, NaN when no data has
// been recorded yet. Callers must treat NaN as "no data", not an error.
func (t *Tracker) Average(key Key) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return mean(t.samples[key])
}

// Max returns the largest ratio in the key's current series, NaN when empty.
func (t *Tracker) Max(key Key) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maximum(t.samples[key])
}

func (t *Tracker) needsFlush() bool {
	if t.lastFlush.IsZero() {
		return true
	}
	return t.now().Sub(t.lastFlush) > flushInterval
}

// flush appends one summary row, creating the log with a header row when the
// file does not exist. Pre-existing content is never rewritten. Caller holds
// the mutex.
func (t *Tracker) flush() {
	t.lastFlush = t.now()

	if err := t.appendRow(); err != nil {
		t.log.Error("failed to write performance log", "error", err, "path", t.logPath)
	}
}

func (t *Tracker) appendRow() error {
	var header string
	if _, err := os.Stat(t.logPath); os.IsNotExist(err) {
		header = t.headerRow()
	}

	f, err := os.OpenFile(t.logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open performance log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(header + t.dataRow()); err != nil {
		return fmt.Errorf("append performance row: %w", err)
	}
	return nil
}

func (t *Tracker) headerRow() string {
	cols := []string{"Timestamp"}
	for _, key := range AllKeys() {
		cols = append(cols, key.Header()+" average", key.Header()+" max")
	}
	return strings.Join(cols, ", ") + "\n"
}

func (t *Tracker) dataRow() string {
	cols := []string{t.now().UTC().Format(time.RFC3339)}
	for _, key := range AllKeys() {
		series := t.samples[key]
		cols = append(cols, formatRatio(mean(series)), formatRatio(maximum(series)))
	}
	return strings.Join(cols, ", ") + "\n"
}

func formatRatio(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func mean(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

func maximum(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	max := series[0]
	for _, v := range series[1:] {
		if v > max {
			max = v
		}
	}
	return max
}
