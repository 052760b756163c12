package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/solsticetv/hls-packager/internal/destination"
	"github.com/solsticetv/hls-packager/internal/hls"
	"github.com/solsticetv/hls-packager/internal/logging"
	"github.com/solsticetv/hls-packager/internal/perf"
	"github.com/solsticetv/hls-packager/internal/sequencer"
)

// Stream supervises every rendition of one logical stream. Renditions fan
// out at start and run independently; shutdown fans in, waiting for each
// pipeline to stop cleanly.
type Stream struct {
	Encoder   Encoder
	Sequencer *sequencer.Sequencer
	Tracker   *perf.Tracker

	// Qualities are the video renditions to run; audio always runs.
	Qualities       []hls.VideoQuality
	SegmentInterval time.Duration

	// Destinations builds the publication targets for one rendition.
	Destinations func(key hls.RenditionKey) ([]Destination, error)

	// MasterPublishers receive the stream-root variant playlist at start.
	MasterPublishers []destination.MasterPublisher

	// Options are applied to every rendition pipeline.
	Options []Option
}

// Run publishes the master playlist and drives all rendition pipelines until
// ctx is cancelled.
func (s *Stream) Run(ctx context.Context) error {
	log := logging.Component("stream")

	master := []byte(hls.MasterPlaylist(s.Qualities))
	for _, pub := range s.MasterPublishers {
		if err := pub.PublishMaster(ctx, master); err != nil {
			// The master playlist is static; destinations that missed it
			// still receive segments, and a later session restart retries.
			log.Error("failed to publish master playlist", "error", err)
		}
	}

	keys := make([]hls.RenditionKey, 0, len(s.Qualities)+1)
	for _, q := range s.Qualities {
		keys = append(keys, hls.VideoRendition(q))
	}
	keys = append(keys, hls.AudioRendition)

	var wg sync.WaitGroup
	for _, key := range keys {
		dests, err := s.Destinations(key)
		if err != nil {
			return err
		}

		p := New(ctx, key, s.Encoder, s.Sequencer, s.Tracker, s.SegmentInterval, dests, s.Options...)

		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Run(ctx)
		}()
	}

	log.Info("stream started", "renditions", len(keys))
	wg.Wait()
	log.Info("stream stopped")
	return nil
}
