// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Playback  PlaybackConfig  `yaml:"playback"`
	PlayCount PlayCountConfig `yaml:"playcount"`
	Resume    ResumeConfig    `yaml:"resume"`
	Library   LibraryConfig   `yaml:"library"`
	Log       LogConfig       `yaml:"log"`
}

// DeviceConfig selects and configures the audio output backend.
type DeviceConfig struct {
	Type     string         `yaml:"type" default:"speaker" validate:"oneof=speaker null"`
	Settings map[string]any `yaml:"settings"`
}

// PlaybackConfig represents playback engine configuration.
// DefaultVolume is a pointer so an explicit 0 (start muted) survives the
// defaults pass instead of being mistaken for "unset".
type PlaybackConfig struct {
	PlayCountThresholdSec int  `yaml:"play_count_threshold_sec" default:"30" validate:"gte=1,lte=600"`
	PersistDebounceMs     int  `yaml:"persist_debounce_ms" default:"1000" validate:"gte=100,lte=30000"`
	ProgressIntervalMs    int  `yaml:"progress_interval_ms" default:"500" validate:"gte=100,lte=5000"`
	DefaultVolume         *int `yaml:"default_volume" default:"80" validate:"required,gte=0,lte=100"`
}

// PlayCountConfig represents the play-count reporting endpoint.
// An empty endpoint disables reporting.
type PlayCountConfig struct {
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
}

// ResumeConfig represents resume snapshot persistence.
// An empty path disables resume.
type ResumeConfig struct {
	Path string `yaml:"path"`
}

// LibraryConfig is the local catalog served to the player.
type LibraryConfig struct {
	Playlists []PlaylistConfig `yaml:"playlists" validate:"dive"`
}

// PlaylistConfig represents one playable collection.
type PlaylistConfig struct {
	ID     string        `yaml:"id" validate:"required"`
	Name   string        `yaml:"name"`
	Tracks []TrackConfig `yaml:"tracks" validate:"required,min=1,dive"`
}

// TrackConfig represents one catalog track with a resolved stream URL.
type TrackConfig struct {
	ID        string `yaml:"id" validate:"required"`
	Title     string `yaml:"title" validate:"required"`
	Artist    string `yaml:"artist"`
	ArtistID  string `yaml:"artist_id"`
	ImageURL  string `yaml:"image_url"`
	StreamURL string `yaml:"stream_url" validate:"required,url"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Output string `yaml:"output" default:"stderr"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for endpoints.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("PLAYCOUNT_ENDPOINT"); v != "" {
		c.PlayCount.Endpoint = v
	}
	if v := os.Getenv("RESUME_PATH"); v != "" {
		c.Resume.Path = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	// Playlist IDs are queue identities and must not collide.
	seen := make(map[string]struct{}, len(c.Library.Playlists))
	for _, p := range c.Library.Playlists {
		if _, ok := seen[p.ID]; ok {
			return errors.Newf("duplicate playlist id: %s", p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	return nil
}

// FindPlaylist returns the playlist with the given ID.
func (c *Config) FindPlaylist(id string) (PlaylistConfig, bool) {
	for _, p := range c.Library.Playlists {
		if p.ID == id {
			return p, true
		}
	}
	return PlaylistConfig{}, false
}
