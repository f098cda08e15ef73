package helpers

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ParseDuration reads a config duration such as "15s". Blank input yields
// def silently; unparsable or non-positive input yields def with a warning.
func ParseDuration(s string, def time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}

	d, err := time.ParseDuration(s)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("value", s).Dur("default", def).Msg("Invalid duration in config, using default")
		return def
	case d <= 0:
		log.Warn().Str("value", s).Dur("default", def).Msg("Duration must be positive, using default")
		return def
	}
	return d
}
