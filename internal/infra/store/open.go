package store

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/showtime/internal/infra/config"
)

// Open creates the Gateway selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Gateway, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		zlog.Warn().Msg("Using in-memory store, data is lost on restart")
		return NewMemoryStore(), nil
	case config.DriverRedis:
		zlog.Info().Msgf("Connecting to redis store: prefix=%s", cfg.Redis.Prefix)
		return NewRedisStore(ctx, cfg.Redis.URL, cfg.Redis.Prefix)
	case config.DriverPostgres:
		zlog.Info().Msg("Connecting to postgres store")
		return NewPostgresStore(ctx, cfg.Postgres.DSN)
	default:
		return nil, errors.Newf("unknown store driver: %s", cfg.Driver)
	}
}
