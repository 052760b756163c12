package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/solsticetv/hls-packager/internal/config"
	"github.com/solsticetv/hls-packager/internal/destination"
	"github.com/solsticetv/hls-packager/internal/encoder"
	"github.com/solsticetv/hls-packager/internal/hls"
	"github.com/solsticetv/hls-packager/internal/logging"
	"github.com/solsticetv/hls-packager/internal/metrics"
	"github.com/solsticetv/hls-packager/internal/perf"
	"github.com/solsticetv/hls-packager/internal/pipeline"
	"github.com/solsticetv/hls-packager/internal/sequencer"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log)
	log := logging.Component("main")

	metrics.Init("")
	if cfg.Metrics.Enabled {
		go func() {
			log.Info("metrics server listening", "address", cfg.Metrics.Address)
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				log.Error("metrics server exited", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		log.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("packager failed", "error", err)
		os.Exit(1)
	}
	log.Info("packager stopped cleanly")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	qualities, err := cfg.Qualities()
	if err != nil {
		return err
	}

	state, err := sequencer.OpenStateStore(cfg.Stream.StateFile)
	if err != nil {
		return fmt.Errorf("open sequence state: %w", err)
	}
	seq := sequencer.New(sequencer.WithStateStore(state))

	tracker := perf.New(cfg.Perf.LogPath)

	interval := time.Duration(cfg.Stream.SegmentIntervalSeconds) * time.Second
	targetDuration := cfg.Stream.SegmentIntervalSeconds

	// Recordings for each run land in a directory named by start date.
	localDir := filepath.Join(cfg.Local.BaseDir, time.Now().Format("2006-01-02"))

	var bucket *destination.Bucket
	if cfg.Remote.Enabled {
		bucket, err = destination.OpenBucket(ctx, cfg.Remote.BucketConfig)
		if err != nil {
			return fmt.Errorf("open remote bucket: %w", err)
		}
		defer bucket.Close()
	}

	var publishers []destination.MasterPublisher
	if cfg.Local.Enabled {
		if err := os.MkdirAll(localDir, 0755); err != nil {
			return fmt.Errorf("create recording directory: %w", err)
		}
		publishers = append(publishers, destination.MasterLocal{Dir: localDir})
	}
	if bucket != nil {
		publishers = append(publishers, destination.MasterRemote{Store: bucket})
	}

	stream := &pipeline.Stream{
		Encoder:         &encoder.Synthetic{Interval: interval},
		Sequencer:       seq,
		Tracker:         tracker,
		Qualities:       qualities,
		SegmentInterval: interval,
		Destinations: func(key hls.RenditionKey) ([]pipeline.Destination, error) {
			var dests []pipeline.Destination
			if cfg.Local.Enabled {
				local, err := destination.NewLocal(localDir, key, targetDuration)
				if err != nil {
					return nil, err
				}
				dests = append(dests, local)
			}
			if bucket != nil {
				dests = append(dests, destination.NewRemote(bucket, key, targetDuration,
					destination.WithTracker(tracker)))
			}
			return dests, nil
		},
		MasterPublishers: publishers,
	}

	log.Info("starting stream",
		"qualities", len(qualities),
		"segment_interval", interval.String(),
		"local", cfg.Local.Enabled,
		"remote", cfg.Remote.Enabled)

	return stream.Run(ctx)
}
