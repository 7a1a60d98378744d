package device

import (
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// New creates a device backend from its configured type and settings map.
func New(deviceType string, settings map[string]any) (Device, error) {
	zlog.Debug().Msgf("device: creating backend type=%s settings=%+v", deviceType, settings)

	switch deviceType {
	case "speaker", "":
		var s SpeakerSettings
		if err := decodeSettings(settings, &s); err != nil {
			return nil, errors.Wrap(err, "invalid speaker settings")
		}
		return newSpeaker(s)

	case "null":
		var s NullSettings
		if err := decodeSettings(settings, &s); err != nil {
			return nil, errors.Wrap(err, "invalid null device settings")
		}
		return newNull(s), nil

	default:
		return nil, errors.Newf("unsupported device type: %s", deviceType)
	}
}

func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "settings validation failed")
	}
	return nil
}
