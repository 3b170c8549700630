package entlog

import (
	"os"

	"github.com/rs/zerolog"
)

// stderrZerolog backs Default() when no logger has been installed via
// SetDefault: structured JSON to stderr, warn level and above.
var stderrZerolog = NewZerologAdapter(
	zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger(),
)

// ZerologAdapter adapts a github.com/rs/zerolog.Logger to the Logger
// interface, the way joeycumines-go-utilpkg/logiface-zerolog adapts zerolog
// to the logiface facade. zerolog itself is the structured-logging backend
// already present in the pack (other_examples/cuemby-warren).
type ZerologAdapter struct {
	Log zerolog.Logger
}

// NewZerologAdapter wraps an existing zerolog.Logger.
func NewZerologAdapter(l zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{Log: l}
}

func (z *ZerologAdapter) Debugf(format string, args ...any) {
	z.Log.Debug().Msgf(format, args...)
}

func (z *ZerologAdapter) Infof(format string, args ...any) {
	z.Log.Info().Msgf(format, args...)
}

func (z *ZerologAdapter) Warnf(format string, args ...any) {
	z.Log.Warn().Msgf(format, args...)
}

func (z *ZerologAdapter) Errorf(format string, args ...any) {
	z.Log.Error().Msgf(format, args...)
}
