package store

import (
	"context"
	"fmt"

	"github.com/Ironwood-Cyber/decorator-demo/config"
	"github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/natsclient"
)

// Open builds the backend selected by cfg. client is required for the NATS
// backend and ignored otherwise.
func Open(ctx context.Context, cfg config.StoreConfig, client *natsclient.Client) (Store, error) {
	switch cfg.Backend {
	case "", config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreNATS:
		if client == nil {
			return nil, errors.WrapFatal(errors.ErrMissingConfig, "store", "Open",
				"nats backend requires nats.enabled")
		}
		return NewKVStore(ctx, client, cfg.Bucket, cfg.Key)
	case config.StoreRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.Key)
	default:
		return nil, errors.WrapFatal(fmt.Errorf("%w: unknown store backend %q", errors.ErrInvalidConfig, cfg.Backend),
			"store", "Open", "select backend")
	}
}
