// Package main provides the player entry point.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/tonearm/tonearm/internal/app/bridge"
	"github.com/tonearm/tonearm/internal/app/device"
	"github.com/tonearm/tonearm/internal/app/engine"
	"github.com/tonearm/tonearm/internal/domain/item"
	"github.com/tonearm/tonearm/internal/infra/config"
	"github.com/tonearm/tonearm/internal/infra/logger"
	"github.com/tonearm/tonearm/internal/infra/playcount"
	"github.com/tonearm/tonearm/internal/infra/resume"
	"github.com/tonearm/tonearm/internal/ui/miniplayer"
)

var (
	app        = kingpin.New("tonearm", "tonearm music player")
	configPath = app.Flag("config", "Path to config file").Default("config/player.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file").String()
	headless   = app.Flag("headless", "Run without the terminal UI").Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: cfg.Log.Output,
		Level:  cfg.Log.Level,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	} else if !*headless && (loggerConfig.Output == "stdout" || loggerConfig.Output == "stderr") {
		// The miniplayer owns the terminal; console logs would garble it.
		loggerConfig.Output = os.DevNull
	}
	if err := logger.Init(loggerConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		os.Exit(1)
	}
}

// run executes the main player logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	zlog.Info().Msgf("Starting player: device=%s", cfg.Device.Type)

	dev, err := device.New(cfg.Device.Type, cfg.Device.Settings)
	if err != nil {
		return err
	}

	bus := bridge.New()
	st := store(cfg)
	eng := engine.New(engineConfig(cfg), dev, bus, reporter(cfg), st)
	defer func() {
		if err := eng.Close(); err != nil {
			zlog.Error().Msgf("Failed to close engine: %v", err)
		}
	}()

	restoreSession(cfg, eng, st)

	if *headless {
		zlog.Info().Msg("Running headless, waiting for shutdown signal")
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		zlog.Info().Msg("Received shutdown signal...")
		return nil
	}

	return miniplayer.Run(bus, library(cfg))
}

func engineConfig(cfg *config.Config) engine.Config {
	return engine.Config{
		PlayCountThreshold: secs(cfg.Playback.PlayCountThresholdSec),
		PersistDebounce:    millis(cfg.Playback.PersistDebounceMs),
		ProgressInterval:   millis(cfg.Playback.ProgressIntervalMs),
		DefaultVolume:      lo.FromPtr(cfg.Playback.DefaultVolume),
	}
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

func millis(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func reporter(cfg *config.Config) playcount.Reporter {
	if cfg.PlayCount.Endpoint == "" {
		zlog.Info().Msg("Play-count endpoint not configured, reporting disabled")
		return playcount.Noop{}
	}
	client, err := playcount.New(playcount.Config{Endpoint: cfg.PlayCount.Endpoint})
	if err != nil {
		zlog.Warn().Msgf("Play-count reporting disabled: %v", err)
		return playcount.Noop{}
	}
	return client
}

func store(cfg *config.Config) resume.Store {
	if cfg.Resume.Path == "" {
		zlog.Info().Msg("Resume path not configured, session persistence disabled")
		return resume.Noop{}
	}
	return resume.NewFileStore(cfg.Resume.Path)
}

// restoreSession reloads the previous session when its queue context still
// exists in the library. A snapshot referencing a removed playlist is
// silently ignored.
func restoreSession(cfg *config.Config, eng *engine.Engine, st resume.Store) {
	snap, ok := st.Load()
	if !ok {
		return
	}
	pl, ok := cfg.FindPlaylist(snap.ListID)
	if !ok {
		zlog.Info().Msgf("Skipping resume: playlist %s is no longer in the library", snap.ListID)
		return
	}
	zlog.Info().Msgf("Restoring session: playlist=%s item=%s", snap.ListID, snap.CurrentItemID)
	eng.Restore(snap, toItems(pl))
}

func library(cfg *config.Config) []miniplayer.Playlist {
	return lo.Map(cfg.Library.Playlists, func(p config.PlaylistConfig, _ int) miniplayer.Playlist {
		name := p.Name
		if name == "" {
			name = p.ID
		}
		return miniplayer.Playlist{ID: p.ID, Name: name, Items: toItems(p)}
	})
}

func toItems(p config.PlaylistConfig) []item.Item {
	return item.FromRecords(lo.Map(p.Tracks, func(t config.TrackConfig, _ int) item.Record {
		return item.Record{
			ID:         t.ID,
			Title:      t.Title,
			ImageURL:   t.ImageURL,
			StreamURL:  t.StreamURL,
			AuthorName: t.Artist,
			AuthorID:   t.ArtistID,
		}
	}))
}
