// Package encoder provides a synthetic fragment source. It stands in for the
// real capture/encode stack, producing correctly-timed placeholder fragments
// so the packaging path can run end to end against real destinations.
package encoder

import (
	"context"
	"sync"
	"time"

	"github.com/solsticetv/hls-packager/internal/hls"
	"github.com/solsticetv/hls-packager/internal/pipeline"
)

// fragmentScale is the presentation timescale synthetic fragments are cut at.
const fragmentScale = 90000

// Synthetic emits one initialization fragment followed by media fragments on
// the wall clock, one per segment interval. Payloads are filler bytes sized
// by rendition bitrate; time ranges are real, so sequencing, playlists, and
// performance tracking behave as they would with live media.
type Synthetic struct {
	// Interval is the media fragment duration.
	Interval time.Duration
}

func (s *Synthetic) Start(ctx context.Context, key hls.RenditionKey, start hls.MediaTime) (pipeline.EncoderSession, error) {
	sess := &syntheticSession{
		fragments: make(chan hls.Fragment),
		done:      make(chan struct{}),
	}
	go sess.run(ctx, key, start.Rescale(fragmentScale), s.Interval)
	return sess, nil
}

type syntheticSession struct {
	fragments chan hls.Fragment
	done      chan struct{}
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

func (s *syntheticSession) Fragments() <-chan hls.Fragment { return s.fragments }

func (s *syntheticSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *syntheticSession) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *syntheticSession) run(ctx context.Context, key hls.RenditionKey, start hls.MediaTime, interval time.Duration) {
	defer close(s.fragments)

	if !s.emit(ctx, hls.Fragment{
		Kind:  hls.FragmentInitialization,
		Bytes: initPayload(key),
	}) {
		return
	}

	step := int64(interval.Seconds() * fragmentScale)
	cursor := start
	payload := mediaPayload(key, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.fail(ctx.Err())
			return
		case <-s.done:
			return
		case <-ticker.C:
			end := hls.MediaTime{Value: cursor.Value + step, Scale: fragmentScale}
			ok := s.emit(ctx, hls.Fragment{
				Kind:  hls.FragmentMedia,
				Bytes: payload,
				Range: hls.TimeRange{Start: cursor, End: end},
			})
			if !ok {
				return
			}
			cursor = end
		}
	}
}

func (s *syntheticSession) emit(ctx context.Context, f hls.Fragment) bool {
	select {
	case s.fragments <- f:
		return true
	case <-ctx.Done():
		s.fail(ctx.Err())
		return false
	case <-s.done:
		return false
	}
}

func (s *syntheticSession) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func initPayload(key hls.RenditionKey) []byte {
	return fill(1024, byte(len(key.Prefix())))
}

// mediaPayload sizes the filler to the rendition's nominal bitrate so upload
// timing is representative.
func mediaPayload(key hls.RenditionKey, interval time.Duration) []byte {
	bitrate := 128_000
	if !key.Audio {
		bitrate = key.Quality.Bitrate()
	}
	size := int(float64(bitrate) / 8 * interval.Seconds())
	return fill(size, 0x5a)
}

func fill(n int, b byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return buf
}
