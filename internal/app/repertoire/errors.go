package repertoire

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/showtime/internal/app/importer"
	"github.com/osa030/showtime/internal/domain/validation"
	"github.com/osa030/showtime/internal/infra/spotify"
)

var (
	// ErrValidation marks rejected input. No state was changed.
	ErrValidation = validation.ErrInvalid
	// ErrInvalidImport marks a rejected import batch.
	ErrInvalidImport = importer.ErrInvalidImport
	ErrNotFound      = errors.New("not found")
	// ErrUnavailable marks a failed read or write against the store.
	ErrUnavailable   = errors.New("store unavailable")
	ErrNotConfigured = errors.New("not configured")
)

// gatewayError logs a store failure and marks it as unavailable.
func gatewayError(err error, format string, args ...any) error {
	wrapped := errors.Wrapf(err, format, args...)
	zlog.Error().Err(err).Msgf(format, args...)
	return errors.Mark(wrapped, ErrUnavailable)
}

// sourceError classifies a Spotify failure. Malformed links are input errors,
// anything else means Spotify could not be reached.
func sourceError(err error) error {
	switch {
	case errors.Is(err, spotify.ErrInvalidURL):
		return errors.Mark(err, ErrValidation)
	case errors.Is(err, ErrInvalidImport), errors.Is(err, context.Canceled):
		return err
	default:
		zlog.Warn().Err(err).Msg("Spotify request failed")
		return errors.Mark(err, ErrUnavailable)
	}
}

func notFound(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrNotFound)
}
